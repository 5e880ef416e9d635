package cliconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// PlayerData is the non-sensitive login state remembered between runs:
// which player, region, and claim the companion was last following. Tokens
// never land in this file.
type PlayerData struct {
	PlayerName string    `json:"player_name"`
	PlayerID   uint64    `json:"player_id"`
	Region     string    `json:"region"`
	Host       string    `json:"host"`
	ClaimID    uint64    `json:"claim_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func playerDataFile(dir string) string { return filepath.Join(dir, "player.json") }

// LoadPlayerData reads the player-data file from the state dir.
func LoadPlayerData(dir string) (PlayerData, error) {
	b, err := os.ReadFile(playerDataFile(dir))
	if err != nil {
		return PlayerData{}, err
	}
	var pd PlayerData
	if err := json.Unmarshal(b, &pd); err != nil {
		return PlayerData{}, err
	}
	return pd, nil
}

// SavePlayerData writes the player-data file atomically: temp file, then
// rename, so a crash mid-write never leaves a torn file.
func SavePlayerData(dir string, pd PlayerData) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	pd.UpdatedAt = time.Now().UTC()
	tmp := playerDataFile(dir) + ".tmp"
	b, err := json.MarshalIndent(pd, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, playerDataFile(dir))
}
