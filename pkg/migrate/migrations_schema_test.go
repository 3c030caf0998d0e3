package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/questcraft/rewards-cms/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestRewardMigrationConstraints(t *testing.T) {
	content := readMigration(t, "create_rewards")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS rewards",
		"rarity reward_rarity NOT NULL",
		"media_type reward_media_type NOT NULL",
		"google_drive_file_id text NOT NULL",
		"REFERENCES collections(id) ON DELETE RESTRICT",
		"DROP TABLE IF EXISTS rewards",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestRewardTagMigrationCascades(t *testing.T) {
	content := readMigration(t, "create_reward_tags")
	for _, sub := range []string{
		"PRIMARY KEY (reward_id, tag_id)",
		"REFERENCES rewards(id) ON DELETE CASCADE",
		"REFERENCES tags(id) ON DELETE CASCADE",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEnumMigrationListsAllValues(t *testing.T) {
	content := readMigration(t, "create_reward_enums")
	if !strings.Contains(content, "('common', 'rare', 'epic', 'legendary', 'mythic')") {
		t.Error("rarity enum values drifted")
	}
	if !strings.Contains(content, "('image', 'video')") {
		t.Error("media type enum values drifted")
	}
}
