package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/hivepay/hivepay/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateConfig checks the gateway configuration using struct tags and
// returns a CONFIG_MISSING gateway error naming the offending field.
func ValidateConfig(cfg types.Config) error {
	if err := validate.Struct(&cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return types.NewGatewayError(types.ErrConfigMissing,
				fmt.Sprintf("config field %s failed %q validation", errs[0].Field(), errs[0].Tag()))
		}
		return types.NewGatewayError(types.ErrConfigMissing, err.Error())
	}
	return nil
}

// ParseAmountString splits a Hive-style amount string such as
// "12.345 HBD" into magnitude and symbol. The boolean is false when the
// string does not carry both parts or the magnitude is not a decimal.
func ParseAmountString(s string) (decimal.Decimal, types.Currency, bool) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) < 2 {
		return decimal.Decimal{}, "", false
	}
	amt, err := decimal.NewFromString(parts[0])
	if err != nil {
		return decimal.Decimal{}, "", false
	}
	cur := types.Currency(strings.ToUpper(strings.TrimSpace(parts[1])))
	return amt, cur, true
}
