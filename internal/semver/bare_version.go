package semver

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// BareVersion is a two or three component release version such as "1.56" or
// "1.56.1", the form accepted by the rust-version manifest field.
type BareVersion struct {
	Major uint64
	Minor uint64
	// Patch is nil for the two component form.
	Patch *uint64
}

func ParseBareVersion(raw string) (BareVersion, error) {
	trimmed := strings.TrimSpace(raw)
	if _, err := mm.StrictNewVersion(padPatch(trimmed)); err != nil {
		return BareVersion{}, fmt.Errorf("semver: parse bare version %q: %w", raw, err)
	}

	parts := strings.Split(trimmed, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return BareVersion{}, fmt.Errorf("semver: parse bare version %q: expected two or three components", raw)
	}

	nums := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return BareVersion{}, fmt.Errorf("semver: parse bare version %q: %w", raw, err)
		}
		nums[i] = n
	}

	bv := BareVersion{Major: nums[0], Minor: nums[1]}
	if len(nums) == 3 {
		bv.Patch = &nums[2]
	}
	return bv, nil
}

func MustParseBareVersion(raw string) BareVersion {
	bv, err := ParseBareVersion(raw)
	if err != nil {
		panic(err)
	}
	return bv
}

// BareFromVersion drops any pre-release or build metadata from v.
func BareFromVersion(v Version) BareVersion {
	patch := v.Patch()
	return BareVersion{Major: v.Major(), Minor: v.Minor(), Patch: &patch}
}

func (b BareVersion) String() string {
	if b.Patch == nil {
		return fmt.Sprintf("%d.%d", b.Major, b.Minor)
	}
	return fmt.Sprintf("%d.%d.%d", b.Major, b.Minor, *b.Patch)
}

// Version widens b to a full version, with a missing patch read as zero.
func (b BareVersion) Version() Version {
	var patch uint64
	if b.Patch != nil {
		patch = *b.Patch
	}
	return NewVersion(b.Major, b.Minor, patch)
}

func (b BareVersion) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *BareVersion) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseBareVersion(raw)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// padPatch lets the strict parser validate the two component form.
func padPatch(raw string) string {
	if strings.Count(raw, ".") == 1 {
		return raw + ".0"
	}
	return raw
}
