package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/spf13/cobra"

	"github.com/avocetlabs/walletcore/core/backup"
	"github.com/avocetlabs/walletcore/storage"
)

var (
	backupDir        string
	periodicInterval int
	backupDbPath     string
	restoreFile      string

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Backup the wallet database",
		Long: `Backup the wallet database to a specified directory.

Backups are stored in the format: /backup_dir/yy-mm-dd-hh-mm/
Use --db-path to specify the database directory to backup.
Use --interval to enable periodic backups (value in minutes, 0 means one-time backup).`,
		Run: func(cmd *cobra.Command, args []string) {
			runBackup(backupDbPath, backupDir, periodicInterval)
		},
	}

	restoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Restore the wallet database from a backup",
		Long: `Restore the wallet database from a backup file.

Use --db-path to specify the database directory to restore to.
Use --file to specify the backup file to restore from.`,
		Run: func(cmd *cobra.Command, args []string) {
			runRestore(backupDbPath, restoreFile)
		},
	}
)

func runBackup(dbPath, backupDir string, intervalMinutes int) {
	fmt.Printf("Starting database backup. DB path: %s, Backup directory: %s\n", dbPath, backupDir)

	db, err := storage.NewWithPath(dbPath)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	logger, err := sdklogging.NewZapLogger(sdklogging.Development)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	service := backup.NewService(logger, db, backupDir)

	if intervalMinutes == 0 {
		if _, err := service.PerformBackup(); err != nil {
			fmt.Printf("Backup failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := service.StartPeriodicBackup(time.Duration(intervalMinutes) * time.Minute); err != nil {
		fmt.Printf("Failed to start periodic backup: %v\n", err)
		os.Exit(1)
	}
	select {}
}

func runRestore(dbPath, restoreFile string) {
	fmt.Printf("Starting database restore. DB path: %s, Restore file: %s\n", dbPath, restoreFile)

	f, err := os.Open(restoreFile)
	if err != nil {
		fmt.Printf("Failed to open backup file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		fmt.Printf("Failed to create DB directory: %v\n", err)
		os.Exit(1)
	}

	db, err := storage.NewWithPath(dbPath)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Load(context.Background(), f); err != nil {
		fmt.Printf("Restore operation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Restore completed successfully\n")
}

func init() {
	backupCmd.Flags().StringVar(&backupDbPath, "db-path", "", "Path to the database directory (required)")
	backupCmd.Flags().StringVar(&backupDir, "dir", "./backup", "Directory to store backups")
	backupCmd.Flags().IntVar(&periodicInterval, "interval", 0, "Run backups periodically (minutes, 0 for one-time)")
	backupCmd.MarkFlagRequired("db-path")
	rootCmd.AddCommand(backupCmd)

	restoreCmd.Flags().StringVar(&backupDbPath, "db-path", "", "Path to the database directory (required)")
	restoreCmd.Flags().StringVar(&restoreFile, "file", "", "Backup file to restore from (required)")
	restoreCmd.MarkFlagRequired("db-path")
	restoreCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(restoreCmd)
}
