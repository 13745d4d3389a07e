package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"patternwatch/internal/clients/snapshots"
	"patternwatch/internal/database"
	"patternwatch/internal/matching"
)

// MatchJob runs the periodic pattern check
type MatchJob struct {
	runner *matching.Runner
	secret string
	log    zerolog.Logger
}

// NewMatchJob creates the periodic match job
func NewMatchJob(runner *matching.Runner, secret string, log zerolog.Logger) *MatchJob {
	return &MatchJob{
		runner: runner,
		secret: secret,
		log:    log.With().Str("job", "match_run").Logger(),
	}
}

// Name returns the job name
func (j *MatchJob) Name() string { return "match_run" }

// Run executes one match run as the scheduled caller
func (j *MatchJob) Run(ctx context.Context) error {
	_, err := j.runner.RunCheck(ctx, matching.Trigger{Secret: j.secret})
	return err
}

// MaintenanceJob checkpoints the WAL files so they never grow unbounded
type MaintenanceJob struct {
	dbs []*database.DB
	log zerolog.Logger
}

// NewMaintenanceJob creates the WAL checkpoint job
func NewMaintenanceJob(dbs []*database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		dbs: dbs,
		log: log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string { return "maintenance" }

// Run checkpoints every database; one failure does not stop the others
func (j *MaintenanceJob) Run(ctx context.Context) error {
	for _, db := range j.dbs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			continue
		}
		j.log.Debug().Str("database", db.Name()).Msg("WAL checkpoint complete")
	}
	return nil
}

// BackupJob uploads database files to the snapshot archive bucket
type BackupJob struct {
	archiver *snapshots.Archiver
	dbs      []*database.DB
	log      zerolog.Logger
}

// NewBackupJob creates the nightly backup job
func NewBackupJob(archiver *snapshots.Archiver, dbs []*database.DB, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		archiver: archiver,
		dbs:      dbs,
		log:      log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string { return "backup" }

// Run checkpoints and uploads every database file
func (j *BackupJob) Run(ctx context.Context) error {
	for _, db := range j.dbs {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Checkpoint first so the main file contains all committed data
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Pre-backup checkpoint failed")
			continue
		}

		url, err := j.archiver.UploadBackup(ctx, db.Path())
		if err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Backup upload failed")
			continue
		}

		j.log.Info().Str("database", db.Name()).Str("url", url).Msg("Database backed up")
	}
	return nil
}
