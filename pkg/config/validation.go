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
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Validate usernames and account ids are unique: the account id is the
	// storage owner, so a duplicate would silently merge two users' trees.
	usernames := make(map[string]bool)
	ids := make(map[string]bool)
	for i, user := range cfg.Auth.Users {
		if usernames[user.Username] {
			return fmt.Errorf("auth.users[%d]: duplicate username %q", i, user.Username)
		}
		usernames[user.Username] = true

		if ids[user.ID] {
			return fmt.Errorf("auth.users[%d]: duplicate user id %q", i, user.ID)
		}
		ids[user.ID] = true
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
