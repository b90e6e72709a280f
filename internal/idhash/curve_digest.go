package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"spot-curve-lab/internal/domain"
)

// ComputeCurveDigest computes a deterministic digest of a fitted curve using SHA256.
// Formula: SHA256(side|date|hour|bits(c1)|...|bits(cK))
// Coefficients enter as raw IEEE-754 bits, so two digests match only when
// every coefficient is bit-identical.
// Returns hex-encoded hash (64 characters).
func ComputeCurveDigest(side domain.Side, key domain.UnitKey, coefficients []float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%d", side, key.Date.Format("2006-01-02"), key.Hour)
	for _, c := range coefficients {
		fmt.Fprintf(&sb, "|%016x", math.Float64bits(c))
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}
