package policy_test

import (
	"testing"

	"github.com/eforest-finance/forest-agent-kit/config"
	"github.com/eforest-finance/forest-agent-kit/policy"
)

func FuzzMatch(f *testing.F) {
	f.Add("forest.market.*", "forest.market.list")
	f.Add("*", "")
	f.Add("[", "a")
	f.Add(`\`, `\`)

	f.Fuzz(func(t *testing.T, pattern, value string) {
		got := policy.Match(pattern, value)
		if pattern == value && !got {
			t.Errorf("pattern %q should match itself", pattern)
		}
	})
}

func FuzzGetServiceState(f *testing.F) {
	f.Add("forest.market.list", "forest.market.*", "forest.ai.*")
	f.Add("", "", "")

	f.Fuzz(func(t *testing.T, key, allow, maint string) {
		st := policy.GetServiceState(key, config.Snapshot{
			policy.EnvEnabledServices: allow,
			policy.EnvMaintenance:     maint,
		})
		if !st.Enabled && !st.Maintenance {
			t.Errorf("disabled state without maintenance for %q", key)
		}
	})
}
