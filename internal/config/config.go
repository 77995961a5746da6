// Package config loads lineagectl's YAML configuration. Every field has a
// default matching the experiment layout the tools were written for, so a
// config file only needs the values that differ.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Scan     ScanConfig     `yaml:"scan"`
	Qsub     QsubConfig     `yaml:"qsub"`
	Store    StoreConfig    `yaml:"store"`
}

type AnalysisConfig struct {
	// SnapshotPath is the phylogeny CSV relative to each run directory.
	SnapshotPath string      `yaml:"snapshot_path"`
	RunLog       string      `yaml:"run_log"`
	Windows      []int       `yaml:"windows"`
	ProblemMap   map[int]int `yaml:"problem_map"`
	DataDir      string      `yaml:"data_dir"`
	Workers      int         `yaml:"workers"`
	StopAtMRCA   bool        `yaml:"stop_at_mrca"`
}

type ScanConfig struct {
	CommandFile    string `yaml:"command_file"`
	FinalUpdate    int    `yaml:"final_update"`
	UseGenerations bool   `yaml:"use_generations"`
	NotDoneLog     string `yaml:"not_done_log"`
}

type QsubConfig struct {
	Shell      string   `yaml:"shell"`
	Walltime   string   `yaml:"walltime"`
	Feature    string   `yaml:"feature"`
	Mem        string   `yaml:"mem"`
	Name       string   `yaml:"name"`
	Modules    []string `yaml:"modules"`
	Exec       string   `yaml:"exec"`
	ArrayVar   string   `yaml:"array_var"`
	BackupLog  bool     `yaml:"backup_log"`
	HeaderFile string   `yaml:"header_file"`
	Output     string   `yaml:"output"`
}

type StoreConfig struct {
	// Kind is memory or sqlite. Empty picks sqlite when the binary has it.
	Kind   string `yaml:"kind"`
	DBPath string `yaml:"db_path"`
}

func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			SnapshotPath: "pop_5000/phylogeny_5000.csv",
			RunLog:       "run.log",
			Windows:      []int{1000, 500, 100, 50},
			Workers:      4,
		},
		Scan: ScanConfig{
			CommandFile: "command.sh",
			NotDoneLog:  "not_done.log",
		},
		Qsub: QsubConfig{
			Shell:     "#!/bin/bash -login",
			Walltime:  "04:00:00:00",
			Feature:   "intel16",
			Mem:       "8gb",
			Name:      "POTHOLES",
			Modules:   []string{"powertools"},
			Exec:      "command.sh",
			ArrayVar:  "PBS_ARRAYID",
			BackupLog: true,
			Output:    "fill_jobholes.qsub",
		},
		Store: StoreConfig{
			DBPath: "lineagekit.db",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Analysis.SnapshotPath == "" {
		errs = append(errs, errors.New("analysis.snapshot_path is required"))
	}
	if c.Analysis.RunLog == "" {
		errs = append(errs, errors.New("analysis.run_log is required"))
	}
	for _, w := range c.Analysis.Windows {
		if w <= 0 {
			errs = append(errs, fmt.Errorf("analysis.windows: window %d must be positive", w))
		}
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, errors.New("analysis.workers must not be negative"))
	}
	if c.Scan.FinalUpdate < 0 {
		errs = append(errs, errors.New("scan.final_update must not be negative"))
	}
	if c.Qsub.Exec == "" {
		errs = append(errs, errors.New("qsub.exec is required"))
	}
	if c.Qsub.ArrayVar == "" {
		errs = append(errs, errors.New("qsub.array_var is required"))
	}
	switch c.Store.Kind {
	case "", "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.kind %q: want memory or sqlite", c.Store.Kind))
	}
	return errors.Join(errs...)
}
