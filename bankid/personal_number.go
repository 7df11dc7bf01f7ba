package bankid

import (
	"strconv"
	"strings"

	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
)

// NormalizePersonalNumber strips separators and expands YYMMDDNNNN to YYYYMMDDNNNN.
// Two digit years above 20 are taken as 19xx.
func NormalizePersonalNumber(pnr string) (string, error) {
	pnr = strings.ReplaceAll(pnr, "-", "")
	pnr = strings.ReplaceAll(pnr, " ", "")

	if pnr == "" {
		return "", apperrors.Wrapf(apperrors.ErrInvalidPersonalNumber, "empty")
	}
	for _, r := range pnr {
		if r < '0' || r > '9' {
			return "", apperrors.Wrapf(apperrors.ErrInvalidPersonalNumber, "%q", pnr)
		}
	}

	switch len(pnr) {
	case 12:
		return pnr, nil
	case 10:
		yy, _ := strconv.Atoi(pnr[:2])
		if yy > 20 {
			return "19" + pnr, nil
		}
		return "20" + pnr, nil
	}
	return "", apperrors.Wrapf(apperrors.ErrInvalidPersonalNumber, "%d digits", len(pnr))
}
