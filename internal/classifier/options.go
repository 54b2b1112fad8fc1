package classifier

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/cv-matcher/internal/features"
	"github.com/spigell/cv-matcher/internal/textnorm"
)

var validate = newValidator()

// newValidator adds the "skills" tag: a custom skill list must keep at least
// one label after cleaning, otherwise the saved artifact could not be loaded.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("skills", func(fl validator.FieldLevel) bool {
		skills, ok := fl.Field().Interface().([]string)
		return ok && len(textnorm.CanonicalSkills(skills)) > 0
	}); err != nil {
		panic(err)
	}
	return v
}

// Options configures training. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	Trees           int      `mapstructure:"trees" validate:"gte=1,lte=5000"`
	MaxDepth        int      `mapstructure:"max-depth" validate:"gte=0"`
	MinSamplesSplit int      `mapstructure:"min-samples-split" validate:"gte=2"`
	VocabularySize  int      `mapstructure:"vocabulary-size" validate:"gte=1,lte=100000"`
	TestFraction    float64  `mapstructure:"test-fraction" validate:"gt=0,lt=1"`
	Seed            uint64   `mapstructure:"seed"`
	Workers         int      `mapstructure:"workers" validate:"gte=0"`
	Skills          []string `mapstructure:"skills" validate:"omitempty,skills,dive,required"`
}

// DefaultOptions returns a 100-tree forest over a 1000-term vocabulary with
// an 80/20 split seeded with 42.
func DefaultOptions() Options {
	return Options{
		Trees:           100,
		MinSamplesSplit: 2,
		VocabularySize:  features.DefaultMaxTerms,
		TestFraction:    0.2,
		Seed:            42,
	}
}

// Validate reports the first invalid option.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid classifier options: %w", err)
	}
	return nil
}
