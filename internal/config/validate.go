// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/dotandev/dlcache/internal/errors"
)

// Validator checks one aspect of a Config.
type Validator interface {
	Validate(cfg *Config) error
}

// CompositeValidator runs a sequence of Validators, stopping at the first
// failure.
type CompositeValidator struct {
	validators []Validator
}

func NewCompositeValidator(validators ...Validator) CompositeValidator {
	return CompositeValidator{validators: validators}
}

func (v CompositeValidator) Validate(cfg *Config) error {
	for _, validator := range v.validators {
		if err := validator.Validate(cfg); err != nil {
			return err
		}
	}
	return nil
}

// RootRequiredValidator rejects a Config with no cache root set.
type RootRequiredValidator struct{}

func (RootRequiredValidator) Validate(cfg *Config) error {
	if cfg.CacheRoot == "" {
		return errors.WrapIOError("cache_root cannot be empty", nil)
	}
	return nil
}

// MaxSizeValidator rejects a negative size bound; zero ("ephemeral") is
// allowed.
type MaxSizeValidator struct{}

func (MaxSizeValidator) Validate(cfg *Config) error {
	if cfg.MaxSizeBytes < 0 {
		return errors.WrapIOError("max_size_bytes must be >= 0", nil)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LogLevelValidator rejects an unrecognized log level; empty is allowed
// (defaults apply later).
type LogLevelValidator struct{}

func (LogLevelValidator) Validate(cfg *Config) error {
	if cfg.LogLevel != "" && !validLogLevels[cfg.LogLevel] {
		return errors.WrapIOError(
			fmt.Sprintf("log_level must be one of trace, debug, info, warn, error; got %q", cfg.LogLevel), nil)
	}
	return nil
}

const maxRequestTimeout = 300

// TimeoutValidator bounds RequestTimeout to a sane range once set.
type TimeoutValidator struct{}

func (TimeoutValidator) Validate(cfg *Config) error {
	if cfg.RequestTimeout == 0 {
		return nil
	}
	if cfg.RequestTimeout < 1 || cfg.RequestTimeout > maxRequestTimeout {
		return errors.WrapIOError(
			fmt.Sprintf("request_timeout must be between 1 and %d", maxRequestTimeout), nil)
	}
	return nil
}

// Validate runs the default validator chain against c.
func (c *Config) Validate() error {
	validator := NewCompositeValidator(
		RootRequiredValidator{},
		MaxSizeValidator{},
		LogLevelValidator{},
		TimeoutValidator{},
	)
	return validator.Validate(c)
}
