// Command sqlc regenerates the query packages listed in .sqlc.base.yaml.
// sqlc accepts one output package per config, so a config is rendered for each
// source file and sqlc is run once per file.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const renderedConfigName = "sqlc.yaml"

func packageConfig(base *viper.Viper, version, file string) ([]byte, error) {
	dir, _ := filepath.Split(file)
	parts := strings.Split(filepath.Clean(dir), string(os.PathSeparator))
	if len(parts) == 0 {
		return nil, errors.Errorf("no package dir for %s", file)
	}

	base.Set("gen.go.package", parts[len(parts)-1])
	base.Set("gen.go.out", dir)
	base.Set("queries", file)
	settings := base.AllSettings()
	delete(settings, "source")

	out := viper.New()
	out.Set("version", version)
	out.Set("sql", []interface{}{settings})

	bs, err := yaml.Marshal(out.AllSettings())
	if err != nil {
		return nil, errors.Wrap(err, "marshal config to yaml")
	}
	return bs, nil
}

func runSqlc(content []byte) error {
	_ = os.Remove(renderedConfigName)
	if err := os.WriteFile(renderedConfigName, content, 0o644); err != nil {
		return errors.Wrap(err, "write sqlc.yaml")
	}
	defer os.Remove(renderedConfigName)

	cmd := exec.Command("sqlc", "generate", "--file", renderedConfigName)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "sqlc generate: %s", string(output))
	}
	return nil
}

func run(baseName string, dryRun bool) error {
	v := viper.New()
	v.SetConfigName(baseName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrap(err, "read base config")
	}

	patterns := v.GetStringSlice("sql.0.source")
	if len(patterns) == 0 {
		return errors.New("has no sql.0.source in config")
	}
	var files []string
	for _, pattern := range patterns {
		f, err := filepath.Glob(pattern)
		if err != nil {
			return errors.Wrapf(err, "glob %s", pattern)
		}
		files = append(files, f...)
	}

	base := v.Sub("sql.0")
	base.Set("schema", v.GetString("sql.0.schema"))

	for _, file := range files {
		content, err := packageConfig(base, v.GetString("version"), file)
		if err != nil {
			return errors.Wrapf(err, "config for %s", file)
		}
		if dryRun {
			fmt.Printf("# %s\n%s\n", file, content)
			continue
		}
		if err := runSqlc(content); err != nil {
			return errors.Wrapf(err, "generate %s", file)
		}
		fmt.Printf("%s file complete\n", file)
	}
	return nil
}

func main() {
	baseName := flag.String("base", ".sqlc.base", "base config name without extension")
	dryRun := flag.Bool("dry-run", false, "print the rendered configs instead of running sqlc")
	flag.Parse()

	if err := run(*baseName, *dryRun); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("done")
}
