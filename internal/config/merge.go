package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyCluster        = "cluster"
	keyRPCURL         = "rpc_url"
	keyKeypair        = "keypair"
	keyCommitment     = "commitment"
	keyConfirmTimeout = "confirm_timeout"
	keyTransfer       = "transfer"
	keyLogs           = "logs"
	keyLogging        = "logging"
	keyFilters        = "filters"
)

// knownTopLevelKeys lists the YAML keys that correspond to exported Config fields.
// Keys not in this list are silently ignored during merge.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyCluster:        true,
	keyRPCURL:         true,
	keyKeypair:        true,
	keyCommitment:     true,
	keyConfirmTimeout: true,
	keyTransfer:       true,
	keyLogs:           true,
	keyLogging:        true,
	keyFilters:        true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// the target Config. Keys present in the overlay replace entire sections
// in the target. Keys absent in the overlay are left unchanged.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	// Discover which top-level keys are present in the overlay.
	var overlay map[string]interface{}
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		// Re-marshal the single section so we can unmarshal it onto the
		// strongly-typed target field.
		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling overlay section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection unmarshals raw YAML bytes into the correct field of target
// based on the given key name. Each section is unmarshalled into a fresh
// zero-value to ensure complete replacement.
func unmarshalSection(target *Config, key string, data []byte) error {
	switch key {
	case keyCluster:
		return yaml.Unmarshal(data, &target.Cluster)
	case keyRPCURL:
		return yaml.Unmarshal(data, &target.RPCURL)
	case keyKeypair:
		return yaml.Unmarshal(data, &target.Keypair)
	case keyCommitment:
		return yaml.Unmarshal(data, &target.Commitment)
	case keyConfirmTimeout:
		var v time.Duration
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.ConfirmTimeout = v
		return nil
	case keyTransfer:
		var v TransferConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Transfer = v
		return nil
	case keyLogs:
		var v LogFiles
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Logs = v
		return nil
	case keyLogging:
		var v LoggingConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Logging = v
		return nil
	case keyFilters:
		var v FilterConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Filters = v
		return nil
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}
