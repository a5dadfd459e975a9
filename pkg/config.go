package yfreq

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LineageAuto selects the most common major lineage for subclade analysis.
const LineageAuto = "auto"

// Config holds the paths and parameters shared by the yfreq tools.
type Config struct {
	Panel       string `yaml:"panel" json:"panel"`
	SampleList  string `yaml:"sample_list" json:"sample_list"`
	Population  string `yaml:"population" json:"population"`
	Gender      string `yaml:"gender" json:"gender"`
	Haplogroups string `yaml:"haplogroups" json:"haplogroups"`
	OutDir      string `yaml:"out_dir" json:"out_dir"`
	Prefix      string `yaml:"prefix" json:"prefix"`
	Lineage     string `yaml:"lineage" json:"lineage"`
	TopN        int    `yaml:"top_n" json:"top_n"`
	DB          string `yaml:"db" json:"db"`
}

// DefaultConfig uses the 1000 Genomes panel and yhaplo output names of the YRI run.
func DefaultConfig() Config {
	return Config{
		Panel:       "integrated_call_samples_v3.20130502.ALL.panel",
		SampleList:  "yri_male_samples.txt",
		Population:  "YRI",
		Gender:      "male",
		Haplogroups: "yri_haplogroups/haplogroups.YRI_males_chrY.txt",
		OutDir:      ".",
		Prefix:      "yri",
		Lineage:     "E",
		TopN:        10,
	}
}

func applyDefaults(cfg Config) Config {
	return DefaultConfig().Override(cfg)
}

// Override returns c with every non-zero field of o replacing its value.
func (c Config) Override(o Config) Config {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&c.Panel, o.Panel)
	set(&c.SampleList, o.SampleList)
	set(&c.Population, o.Population)
	set(&c.Gender, o.Gender)
	set(&c.Haplogroups, o.Haplogroups)
	set(&c.OutDir, o.OutDir)
	set(&c.Prefix, o.Prefix)
	set(&c.Lineage, o.Lineage)
	set(&c.DB, o.DB)
	if o.TopN > 0 {
		c.TopN = o.TopN
	}
	return c
}

// AnalysisLineage is the lineage passed to Analyze; "" means pick the most
// common one.
func (c Config) AnalysisLineage() string {
	if c.Lineage == LineageAuto {
		return ""
	}
	return c.Lineage
}

func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("LoadConfig: %w", err)
	}
	return applyDefaults(cfg), nil
}

// LoadConfigMaybe reads a YAML config, or returns the defaults when path is empty.
func LoadConfigMaybe(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v: %w", ErrInputNotFound, path, err)
	}
	return LoadConfig(data)
}
