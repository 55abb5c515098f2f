// Package utils provides utility functions for the application.
package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Asset codes look like ACME-PC0007: tenant short code, a dash, category
// short code, then the sequence number zero-padded to at least
// AssetCodeSequencePadding digits. Padding is a minimum width, not a cap:
// sequence 10000 renders as ACME-PC10000 with no truncation.

// AssetCodeSequencePadding is the minimum digit width of the sequence field.
const AssetCodeSequencePadding = 4

var (
	ErrEmptyTenantCode    = errors.New("tenant short code is empty")
	ErrEmptyCategoryCode  = errors.New("category short code is empty")
	ErrZeroSequenceNumber = errors.New("sequence number must be positive")
	ErrMalformedAssetCode = errors.New("malformed asset code")
)

// AssetCodeParts is the parsed triple behind a display code.
type AssetCodeParts struct {
	TenantCode     string
	CategoryCode   string
	SequenceNumber uint64
}

// FormatAssetCode renders the display code for a (tenant, category, sequence)
// triple. Short codes are assumed pre-validated upper-case alphanumerics from
// the tenant/category stores; only non-emptiness is checked here. The
// function is pure and safe for concurrent use.
func FormatAssetCode(tenantCode, categoryCode string, sequenceNumber uint64) (string, error) {
	if tenantCode == "" {
		return "", ErrEmptyTenantCode
	}
	if categoryCode == "" {
		return "", ErrEmptyCategoryCode
	}
	if sequenceNumber == 0 {
		return "", ErrZeroSequenceNumber
	}
	return fmt.Sprintf("%s-%s%0*d", tenantCode, categoryCode, AssetCodeSequencePadding, sequenceNumber), nil
}

// ParseAssetCode is the inverse of FormatAssetCode. The sequence field is the
// longest trailing run of digits after the dash, so category codes that end
// in a digit do not round-trip; the backing stores reject such codes.
func ParseAssetCode(code string) (*AssetCodeParts, error) {
	dash := strings.IndexByte(code, '-')
	if dash <= 0 || dash == len(code)-1 {
		return nil, ErrMalformedAssetCode
	}
	tenantCode := code[:dash]
	rest := code[dash+1:]

	i := len(rest)
	for i > 0 && rest[i-1] >= '0' && rest[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(rest) {
		// No category prefix, or no digits at all.
		return nil, ErrMalformedAssetCode
	}

	sequenceNumber, err := strconv.ParseUint(rest[i:], 10, 64)
	if err != nil || sequenceNumber == 0 {
		return nil, ErrMalformedAssetCode
	}

	return &AssetCodeParts{
		TenantCode:     tenantCode,
		CategoryCode:   rest[:i],
		SequenceNumber: sequenceNumber,
	}, nil
}
