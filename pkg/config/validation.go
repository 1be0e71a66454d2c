package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation via
// struct tags, with additional custom validation for rules that cannot be
// expressed in tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if len(cfg.Storages) == 0 {
		return fmt.Errorf("storages: at least one storage node must be configured")
	}

	ids := make(map[string]bool)
	for i, node := range cfg.Storages {
		if ids[node.ID] {
			return fmt.Errorf("storages[%d]: duplicate storage id %q", i, node.ID)
		}
		ids[node.ID] = true

		switch node.Type {
		case "http":
			if node.URL == "" {
				return fmt.Errorf("storages[%d]: url is required for http nodes", i)
			}
		case "s3":
			if len(node.S3) == 0 {
				return fmt.Errorf("storages[%d]: s3 section is required for s3 nodes", i)
			}
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
