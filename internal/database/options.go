package database

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// dsnOptions merges user overrides onto driver defaults and renders them as sorted
// key=value pairs so generated DSNs are stable.
func dsnOptions(defaults, overrides map[string]string) []string {
	merged := lo.Assign(defaults, overrides)
	keys := lo.Keys(merged)
	sort.Strings(keys)
	return lo.Map(keys, func(key string, _ int) string {
		return fmt.Sprintf("%s=%s", key, merged[key])
	})
}

func requireCredentials(driver string, cfg Config) error {
	if strings.TrimSpace(cfg.User) == "" || strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%s audit store requires user and database name", driver)
	}
	return nil
}
