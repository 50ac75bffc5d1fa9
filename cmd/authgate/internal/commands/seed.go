package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/identity"
	"github.com/authgate/authgate/internal/logger"
	"github.com/authgate/authgate/internal/store"
	postgresstore "github.com/authgate/authgate/internal/store/postgres"
)

// SeedCmd loads profiles from a YAML file into the profile store. Intended
// for bootstrapping local and test environments.
type SeedCmd struct {
	File string `arg:"" help:"path to a YAML seed file" type:"existingfile"`

	ConnString  string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING" required:""`
	AutoMigrate bool   `help:"run database migrations before seeding" default:"true"`
}

type seedFile struct {
	Profiles []seedProfile `yaml:"profiles"`
}

type seedProfile struct {
	SubjectID     string         `yaml:"subject_id"`
	Email         string         `yaml:"email"`
	DisplayName   string         `yaml:"display_name"`
	EmailVerified bool           `yaml:"email_verified"`
	Disabled      bool           `yaml:"disabled"`
	Roles         []string       `yaml:"roles"`
	CustomClaims  map[string]any `yaml:"custom_claims"`
	Provider      string         `yaml:"provider"`
}

func (c *SeedCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	if len(seed.Profiles) == 0 {
		return fmt.Errorf("seed file contains no profiles")
	}

	pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{ConnString: c.ConnString})
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if c.AutoMigrate {
		if err := postgresstore.RunMigrations(ctx, pool); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	profiles := identity.NewProfileService(postgresstore.NewProfileStore(pool), audit.NewLoggerSink())

	created := 0
	for _, p := range seed.Profiles {
		if p.SubjectID == "" || p.Email == "" {
			return fmt.Errorf("seed profile missing subject_id or email")
		}

		record := &store.ProfileRecord{
			SubjectID:     p.SubjectID,
			Email:         p.Email,
			DisplayName:   p.DisplayName,
			EmailVerified: p.EmailVerified,
			Disabled:      p.Disabled,
			Roles:         p.Roles,
			CustomClaims:  p.CustomClaims,
			Provider:      p.Provider,
		}

		if _, err := profiles.CreateProfile(ctx, record); err != nil {
			if errors.Is(err, store.ErrProfileAlreadyExists) {
				log.Info().Str("subject_id", p.SubjectID).Msg("Profile already exists, skipping")
				continue
			}
			return fmt.Errorf("failed to seed profile %s: %w", p.SubjectID, err)
		}
		created++
	}

	log.Info().Int("created", created).Int("total", len(seed.Profiles)).Msg("Seed complete")

	return nil
}
