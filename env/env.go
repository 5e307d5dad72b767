package env

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/spf13/viper"
)

var validators = map[string][]string{}

var v = validator.New()

var validatorsMu = &sync.Mutex{}

func init() {
	v.RegisterValidation("required_for_env", RequiredForEnv)
}

// RegisterValidation attaches validator tags to a config key. Violations are logged whenever
// the key is read.
func RegisterValidation(name string, tags ...string) {
	validatorsMu.Lock()
	defer validatorsMu.Unlock()
	validators[name] = dedupe(append(validators[name], tags...))
}

// Validate checks every registered key and returns the names that failed
func Validate(ctx context.Context) []string {
	validatorsMu.Lock()
	names := make([]string, 0, len(validators))
	for name := range validators {
		names = append(names, name)
	}
	validatorsMu.Unlock()

	var invalid []string
	for _, name := range names {
		if !validate(ctx, name) {
			invalid = append(invalid, name)
		}
	}
	return invalid
}

func validate(ctx context.Context, name string) bool {
	validatorsMu.Lock()
	tags := validators[name]
	validatorsMu.Unlock()

	ok := true
	for _, tag := range tags {
		if err := v.Var(viper.GetString(name), tag); err != nil {
			logger.For(ctx).Errorf("invalid env var: %s, tag: %s, err: %s", name, tag, err.Error())
			ok = false
		}
	}
	return ok
}

func Get[T any](ctx context.Context, name string) T {
	it, _ := GetIfExists[T](ctx, name)
	return it
}

func GetIfExists[T any](ctx context.Context, name string) (T, bool) {
	validate(ctx, name)

	if !viper.IsSet(name) {
		return *new(T), false
	}

	// Values coming from the environment are always strings, so go through viper's casts
	var val any
	switch any(*new(T)).(type) {
	case string:
		val = viper.GetString(name)
	case bool:
		val = viper.GetBool(name)
	case int:
		val = viper.GetInt(name)
	case float64:
		val = viper.GetFloat64(name)
	case time.Duration:
		val = viper.GetDuration(name)
	case []string:
		val = viper.GetStringSlice(name)
	default:
		val = viper.Get(name)
	}

	it, ok := val.(T)
	if !ok {
		logger.For(ctx).Errorf("invalid env var: %s, expected type: %T", name, it)
		return *new(T), false
	}

	return it, true
}

func GetString(ctx context.Context, name string) string {
	return Get[string](ctx, name)
}

// RequiredForEnv fails an empty value only when ENV matches the tag's parameter,
// e.g. `required_for_env=production`.
var RequiredForEnv validator.Func = func(fl validator.FieldLevel) bool {
	if viper.GetString("ENV") != fl.Param() {
		return true
	}
	return fl.Field().String() != ""
}

func dedupe(src []string) []string {
	result := src[:0]

	seen := make(map[string]bool)
	for _, x := range src {
		if !seen[x] {
			result = append(result, x)
			seen[x] = true
		}
	}
	return result
}
