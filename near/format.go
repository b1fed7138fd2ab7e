package near

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// NominationExp is the number of yoctoNEAR decimals in one NEAR.
const NominationExp = 24

// DefaultFracDigits is the precision used when formatting balances.
const DefaultFracDigits = NominationExp

// FormatNearAmount renders a yoctoNEAR amount as NEAR with grouped thousands,
// rounding half up to fracDigits decimals and trimming trailing zeros.
func FormatNearAmount(yocto string, fracDigits int) (string, error) {
	if fracDigits < 0 || fracDigits > NominationExp {
		return "", fmt.Errorf("fraction digits must be between 0 and %d, got %d", NominationExp, fracDigits)
	}
	amount, ok := new(big.Int).SetString(yocto, 10)
	if !ok || amount.Sign() < 0 {
		return "", fmt.Errorf("invalid yoctoNEAR amount %q", yocto)
	}

	if roundingExp := NominationExp - fracDigits - 1; roundingExp > 0 {
		offset := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(roundingExp)), nil)
		amount.Add(amount, offset.Mul(offset, big.NewInt(5)))
	}

	digits := amount.String()
	whole := "0"
	if len(digits) > NominationExp {
		whole = digits[:len(digits)-NominationExp]
		digits = digits[len(digits)-NominationExp:]
	}
	fraction := strings.Repeat("0", NominationExp-len(digits)) + digits

	wholeInt, _ := new(big.Int).SetString(whole, 10)
	formatted := humanize.BigComma(wholeInt)
	fraction = strings.TrimRight(fraction[:fracDigits], "0")
	if fraction == "" {
		return formatted, nil
	}
	return formatted + "." + fraction, nil
}

// ParseNearAmount converts a NEAR amount such as "1,000.5" into yoctoNEAR.
func ParseNearAmount(amount string) (string, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(amount, ",", ""))
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return "", fmt.Errorf("cannot parse %q as NEAR amount: %w", amount, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("cannot parse %q as NEAR amount: negative", amount)
	}
	if d.Exponent() < -NominationExp {
		return "", fmt.Errorf("cannot parse %q as NEAR amount: more than %d decimals", amount, NominationExp)
	}
	return d.Shift(NominationExp).BigInt().String(), nil
}
