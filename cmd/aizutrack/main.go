// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

// aizutrack reads JSON-lines events on stdin and delivers them through the
// Aizu pipeline. It exists for smoke-testing a collection endpoint and as a
// reference for wiring the pipeline in a server-side process.
//
// Each input line is {"event": "...", "properties": {...}}; a line without an
// event name is captured as a pageview.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/AizuGit/cdn/aizu"
	"github.com/AizuGit/cdn/model"
	"github.com/AizuGit/cdn/store/sqlite"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

const applicationName = "aizutrack"

var (
	GitCommit = "undefined"
	Version   = "undefined"
	BuildTime = "undefined"
)

func setupFlagSet(fs *pflag.FlagSet) {
	fs.StringP("file", "f", "", "the configuration file to use.  Overrides the search path.")
	fs.BoolP("debug", "d", false, "enables debug logging.  Overrides configuration.")
	fs.BoolP("version", "v", false, "print version and exit")
}

func setup(args []string) (*viper.Viper, *zap.Logger, error) {
	l, err := zap.NewDevelopment() // initial value
	if err != nil {
		return nil, l, fmt.Errorf("failed to create zap logger: %w", err)
	}

	fs := pflag.NewFlagSet(applicationName, pflag.ContinueOnError)
	setupFlagSet(fs)
	err = fs.Parse(args)
	if err != nil {
		return nil, l, err
	}
	if printVersion, _ := fs.GetBool("version"); printVersion {
		printVersionInfo()
	}

	v := viper.New()

	if file, _ := fs.GetString("file"); len(file) > 0 {
		v.SetConfigFile(file)
		err = v.ReadInConfig()
	} else {
		v.SetConfigName(applicationName)
		v.AddConfigPath(fmt.Sprintf("/etc/%s", applicationName))
		v.AddConfigPath(fmt.Sprintf("$HOME/.%s", applicationName))
		v.AddConfigPath(".")
		err = v.ReadInConfig()
	}
	if err != nil {
		return v, l, fmt.Errorf("failed to read config file: %w", err)
	}

	if debug, _ := fs.GetBool("debug"); debug {
		v.Set("log.level", "DEBUG")
		v.Set("debug", true)
	}

	var c sallust.Config
	err = v.UnmarshalKey("logging", &c, arrange.ComposeDecodeHooks(sallust.DecodeHook))
	if err != nil {
		return v, l, err
	}

	l, err = c.Build()
	return v, l, err
}

func main() {
	v, logger, err := setup(os.Args[1:])
	switch {
	case errors.Is(err, pflag.ErrHelp):
		return
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(v, logger, os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(v *viper.Viper, logger *zap.Logger, input io.Reader) error {
	config := aizu.Config{
		APIKey:         v.GetString("apiKey"),
		APIURL:         v.GetString("apiUrl"),
		Debug:          v.GetBool("debug"),
		SessionTimeout: v.GetDuration("sessionTimeout"),
		BatchSize:      v.GetInt("batchSize"),
		FlushInterval:  v.GetDuration("flushInterval"),
		Logger:         logger,
	}

	if path := v.GetString("storagePath"); path != "" {
		kv, err := sqlite.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open identity storage: %w", err)
		}
		defer kv.Close()
		config.Storage = kv
	}

	client, err := aizu.New(config)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	client.Init(ctx)

	// properties from the config file ride along on every event
	base := cast.ToStringMap(v.Get("properties"))

	type line struct {
		Event      string         `json:"event"`
		Properties map[string]any `json:"properties"`
	}

	sent := 0
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var in line
		if err := json.Unmarshal(raw, &in); err != nil {
			logger.Warn("skipping malformed input line", zap.Error(err))
			continue
		}

		properties := make(model.Properties, len(base)+len(in.Properties))
		for k, val := range base {
			properties[k] = val
		}
		for k, val := range in.Properties {
			properties[k] = val
		}

		if in.Event == "" {
			client.Pageview(properties)
		} else {
			client.Track(in.Event, properties)
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed reading input: %w", err)
	}

	client.Flush(ctx)
	logger.Info("input drained", zap.Int("events", sent))
	return nil
}

func printVersionInfo() {
	fmt.Fprintf(os.Stdout, "%s:\n", applicationName)
	fmt.Fprintf(os.Stdout, "  version: \t%s\n", Version)
	fmt.Fprintf(os.Stdout, "  go version: \t%s\n", runtime.Version())
	fmt.Fprintf(os.Stdout, "  built time: \t%s\n", BuildTime)
	fmt.Fprintf(os.Stdout, "  git commit: \t%s\n", GitCommit)
	fmt.Fprintf(os.Stdout, "  os/arch: \t%s/%s\n", runtime.GOOS, runtime.GOARCH)
	os.Exit(0)
}
