// Package param holds the simulator hyperparameters that are not
// worth a CLI flag. They are kept in a YAML blob so experiments can
// tweak them in one place without touching the code that uses them.
package param

import (
	"log"
	"strings"

	"gopkg.in/yaml.v3"
)

var defaults = `
histo:
  file_suffix: .dat
  max_cpl_cond: 35
  max_level_cond: 20

job:
  max_tasks_per_job: 1000

metrics:
  util_percentile: 95.0

batch:
  write_retries: 1
`

type Config struct {
	Histo struct {
		// Suffix of the distribution files in the data directory.
		FILE_SUFFIX string `yaml:"file_suffix"`
		// Saturation cap for the cpl[task_num] conditioning value.
		MAX_CPL_COND int `yaml:"max_cpl_cond"`
		// Saturation cap for the level[cpl] conditioning value.
		MAX_LEVEL_COND int `yaml:"max_level_cond"`
	} `yaml:"histo"`
	Job struct {
		// Upper bound on tasks per job; sampling a larger job is
		// fatal.
		MAX_TASKS_PER_JOB int `yaml:"max_tasks_per_job"`
	} `yaml:"job"`
	Metrics struct {
		// Percentile reported for the utilization distribution.
		UTIL_PERCENTILE float64 `yaml:"util_percentile"`
	} `yaml:"metrics"`
	Batch struct {
		// Retries for a failed CSV row write.
		WRITE_RETRIES int `yaml:"write_retries"`
	} `yaml:"batch"`
}

var Conf *Config

func init() {
	Conf = ReadConfig(defaults)
}

func ReadConfig(params string) *Config {
	config := &Config{}
	d := yaml.NewDecoder(strings.NewReader(params))
	if err := d.Decode(&config); err != nil {
		log.Fatalf("Yaml decode %v err %v\n", params, err)
	}
	return config
}
