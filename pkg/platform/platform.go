// Package platform classifies the target host into a supported variant.
// The variant is detected exactly once, before any step guard runs, and
// is the only host identity the rest of the system is allowed to branch on.
package platform

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/provisio-sh/provisio/pkg/errors"
	"github.com/provisio-sh/provisio/pkg/logging"
)

// DefaultOSReleasePath is where the host identification descriptor lives.
const DefaultOSReleasePath = "/etc/os-release"

// Variant is the detected desktop family of the target host.
type Variant int

const (
	// VariantUnknown is the zero value; it never passes a guard.
	VariantUnknown Variant = iota
	// VariantGnome covers stock Debian desktops running GNOME Shell.
	VariantGnome
	// VariantPlasma covers Neptune, the KDE Plasma based Debian derivative.
	VariantPlasma
)

// String implements fmt.Stringer.
func (v Variant) String() string {
	switch v {
	case VariantGnome:
		return "gnome"
	case VariantPlasma:
		return "plasma"
	default:
		return "unknown"
	}
}

// signature maps an os-release token to a variant. The list is ordered and
// the first match wins: Neptune carries debian in ID_LIKE, so it must be
// probed before the plain debian signature.
type signature struct {
	token   string
	variant Variant
}

var signatures = []signature{
	{token: "neptune", variant: VariantPlasma},
	{token: "debian", variant: VariantGnome},
}

// Detect reads the host descriptor at path (DefaultOSReleasePath when empty)
// and classifies the host. An unrecognized host is a hard failure, never a
// fallback: the variant selects package lists, and guessing wrong would
// purge or install the wrong ones.
func Detect(path string) (Variant, error) {
	if path == "" {
		path = DefaultOSReleasePath
	}

	f, err := os.Open(path)
	if err != nil {
		return VariantUnknown, errors.Wrapf(err, errors.ErrOSReleaseRead,
			"cannot read host identification from %s", path)
	}
	defer func() { _ = f.Close() }()

	return DetectFrom(f)
}

// DetectFrom classifies the host from an os-release style reader.
func DetectFrom(r io.Reader) (Variant, error) {
	logger := logging.GetLogger("platform")

	fields, err := parseOSRelease(r)
	if err != nil {
		return VariantUnknown, errors.Wrap(err, errors.ErrOSReleaseRead,
			"malformed host identification data")
	}

	haystack := strings.ToLower(strings.Join([]string{
		fields["ID"],
		fields["ID_LIKE"],
		fields["NAME"],
	}, " "))

	for _, sig := range signatures {
		if strings.Contains(haystack, sig.token) {
			logger.Debug().
				Str("token", sig.token).
				Stringer("variant", sig.variant).
				Msg("Host variant detected")
			return sig.variant, nil
		}
	}

	return VariantUnknown, errors.Newf(errors.ErrUnsupportedEnvironment,
		"unsupported host: id=%q id_like=%q", fields["ID"], fields["ID_LIKE"])
}

// parseOSRelease reads KEY=value lines, tolerating comments, blank lines
// and quoted values, per os-release(5).
func parseOSRelease(r io.Reader) (map[string]string, error) {
	fields := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		value = strings.Trim(value, `"'`)
		fields[strings.TrimSpace(key)] = value
	}

	return fields, scanner.Err()
}
