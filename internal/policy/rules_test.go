package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Wikid82/warden/internal/models"
)

func TestParseRule(t *testing.T) {
	t.Run("valid rule", func(t *testing.T) {
		rule, err := ParseRule(`{"version":1,"kind":"Confirm","path":{"kind":"Equals","data":"/usr/bin/systemctl"}}`)
		assert.NoError(t, err)
		assert.Equal(t, models.ElevationConfirm, rule.Kind)
		assert.NotNil(t, rule.Path)
	})

	t.Run("missing version", func(t *testing.T) {
		_, err := ParseRule(`{"kind":"Confirm","path":{"kind":"Equals","data":"/usr/bin/systemctl"}}`)
		assert.Error(t, err)
	})

	t.Run("unknown version", func(t *testing.T) {
		_, err := ParseRule(`{"version":99,"kind":"Confirm","path":{"kind":"Equals","data":"/x"}}`)
		assert.Error(t, err)
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := ParseRule(`{"version":1,"kind":"Maybe","path":{"kind":"Equals","data":"/x"}}`)
		assert.Error(t, err)
	})

	t.Run("no matchers", func(t *testing.T) {
		_, err := ParseRule(`{"version":1,"kind":"Confirm"}`)
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseRule(`target == /usr/bin/systemctl`)
		assert.Error(t, err)
	})
}

func TestValidateRules(t *testing.T) {
	assert.NoError(t, ValidateRules(nil))
	assert.NoError(t, ValidateRules([]string{
		`{"version":1,"kind":"AutoApprove","path":{"kind":"Equals","data":"/usr/bin/top"}}`,
	}))

	err := ValidateRules([]string{
		`{"version":1,"kind":"AutoApprove","path":{"kind":"Equals","data":"/usr/bin/top"}}`,
		`not a rule`,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rule 1")
}

func TestStringFilterMatch(t *testing.T) {
	cases := []struct {
		name   string
		filter StringFilter
		input  string
		want   bool
	}{
		{"equals hit", StringFilter{Kind: StringEquals, Data: "--force"}, "--force", true},
		{"equals miss", StringFilter{Kind: StringEquals, Data: "--force"}, "--Force", false},
		{"starts with", StringFilter{Kind: StringStartsWith, Data: "--conf"}, "--config=/etc/app", true},
		{"ends with", StringFilter{Kind: StringEndsWith, Data: ".msi"}, "setup.msi", true},
		{"contains", StringFilter{Kind: StringContains, Data: "prod"}, "--env=production", true},
		{"regex hit", StringFilter{Kind: StringRegex, Data: `^-v+$`}, "-vvv", true},
		{"regex invalid pattern never matches", StringFilter{Kind: StringRegex, Data: `([`}, "anything", false},
		{"unknown kind never matches", StringFilter{Kind: "Fuzzy", Data: "x"}, "x", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Match(tc.input))
		})
	}
}

func TestPathFilterMatch(t *testing.T) {
	t.Run("equals cleans both sides", func(t *testing.T) {
		f := PathFilter{Kind: PathEquals, Data: "/usr/bin/systemctl"}
		assert.True(t, f.Match("/usr/bin/systemctl"))
		assert.True(t, f.Match("/usr/bin/../bin/systemctl"))
		assert.True(t, f.Match("/usr/bin/systemctl/"))
		assert.False(t, f.Match("/usr/local/bin/systemctl"))
	})

	t.Run("file name ignores directory", func(t *testing.T) {
		f := PathFilter{Kind: PathFileName, Data: "systemctl"}
		assert.True(t, f.Match("/usr/bin/systemctl"))
		assert.True(t, f.Match("/opt/other/systemctl"))
		assert.False(t, f.Match("/usr/bin/journalctl"))
	})

	t.Run("wildcard", func(t *testing.T) {
		f := PathFilter{Kind: PathWildcard, Data: "/usr/bin/*"}
		assert.True(t, f.Match("/usr/bin/systemctl"))
		assert.False(t, f.Match("/usr/sbin/reboot"))
	})
}

func TestHashFilterMatch(t *testing.T) {
	h := Hash{Sha1: "aa11", Sha256: "bb22"}

	t.Run("empty filter never matches", func(t *testing.T) {
		assert.False(t, HashFilter{}.Match(h))
	})

	t.Run("single digest", func(t *testing.T) {
		assert.True(t, HashFilter{Sha256: "bb22"}.Match(h))
		assert.True(t, HashFilter{Sha1: "AA11"}.Match(h))
		assert.False(t, HashFilter{Sha256: "cc33"}.Match(h))
	})

	t.Run("both digests must match", func(t *testing.T) {
		assert.True(t, HashFilter{Sha1: "aa11", Sha256: "bb22"}.Match(h))
		assert.False(t, HashFilter{Sha1: "aa11", Sha256: "cc33"}.Match(h))
	})
}

func TestSignatureFilterMatch(t *testing.T) {
	f := SignatureFilter{CheckAuthenticode: true}
	assert.True(t, f.Match(Signature{Status: models.SignatureValid}))
	assert.False(t, f.Match(Signature{Status: models.SignatureNotSigned}))
	assert.False(t, f.Match(Signature{Status: models.SignatureNotTrusted}))

	off := SignatureFilter{CheckAuthenticode: false}
	assert.True(t, off.Match(Signature{Status: models.SignatureNotSigned}))
}

func TestRuleMatches(t *testing.T) {
	app := Application{
		Path:             "/usr/bin/systemctl",
		CommandLine:      []string{"restart", "nginx"},
		WorkingDirectory: "/root",
		Hash:             Hash{Sha1: "aa11", Sha256: "bb22"},
		Signature:        Signature{Status: models.SignatureValid},
	}

	t.Run("all present matchers must accept", func(t *testing.T) {
		r := Rule{
			Version:   RuleVersion,
			Kind:      models.ElevationAutoApprove,
			Path:      &PathFilter{Kind: PathEquals, Data: "/usr/bin/systemctl"},
			Signature: &SignatureFilter{CheckAuthenticode: true},
		}
		assert.True(t, r.Matches(app))

		r.Path = &PathFilter{Kind: PathEquals, Data: "/usr/bin/journalctl"}
		assert.False(t, r.Matches(app))
	})

	t.Run("command line compares argument by argument", func(t *testing.T) {
		r := Rule{
			Version: RuleVersion,
			Kind:    models.ElevationConfirm,
			CommandLine: []StringFilter{
				{Kind: StringEquals, Data: "restart"},
				{Kind: StringStartsWith, Data: "ngi"},
			},
		}
		assert.True(t, r.Matches(app))
	})

	t.Run("command line length must be equal", func(t *testing.T) {
		r := Rule{
			Version: RuleVersion,
			Kind:    models.ElevationConfirm,
			CommandLine: []StringFilter{
				{Kind: StringEquals, Data: "restart"},
			},
		}
		assert.False(t, r.Matches(app))
	})

	t.Run("empty command line filter requires empty arguments", func(t *testing.T) {
		r := Rule{
			Version:     RuleVersion,
			Kind:        models.ElevationConfirm,
			CommandLine: []StringFilter{},
		}
		assert.False(t, r.Matches(app))
		bare := app
		bare.CommandLine = nil
		assert.True(t, r.Matches(bare))
	})

	t.Run("hash list is any-of", func(t *testing.T) {
		r := Rule{
			Version: RuleVersion,
			Kind:    models.ElevationAutoApprove,
			Hashes: []HashFilter{
				{Sha256: "deadbeef"},
				{Sha256: "bb22"},
			},
		}
		assert.True(t, r.Matches(app))

		r.Hashes = []HashFilter{{Sha256: "deadbeef"}}
		assert.False(t, r.Matches(app))
	})

	t.Run("working directory", func(t *testing.T) {
		r := Rule{
			Version:          RuleVersion,
			Kind:             models.ElevationConfirm,
			WorkingDirectory: &PathFilter{Kind: PathEquals, Data: "/root"},
		}
		assert.True(t, r.Matches(app))

		r.WorkingDirectory = &PathFilter{Kind: PathEquals, Data: "/home"}
		assert.False(t, r.Matches(app))
	})
}
