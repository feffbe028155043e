package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/apexwatch/face-enroll/internal/batch"
	"github.com/apexwatch/face-enroll/internal/config"
	"github.com/apexwatch/face-enroll/internal/enrollment"
	"github.com/apexwatch/face-enroll/internal/preview"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <folder-path> [folder-path...]",
	Short: "Enroll faces from image folders",
	Long: `Validate and enroll every supported image found in one or more folders.

By default, only files directly inside the folders are considered.
Use -r to search subdirectories recursively. Files that are not images,
exceed the size limit, or duplicate already collected content are
reported and skipped.

Example:
  face-enroll enroll /badges/scans
  face-enroll enroll -r /badges/2026 /badges/backlog
  face-enroll enroll --department security --retry 2 /badges/scans`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().BoolP("recursive", "r", false, "Search for images recursively in subdirectories")
	enrollCmd.Flags().String("department", "", "Department recorded for every enrolled face")
	enrollCmd.Flags().String("access-level", "", "Access level recorded for every enrolled face")
	enrollCmd.Flags().Int("retry", 0, "Retry failed items up to N more times")
}

// collectImagePaths gathers supported image files from the given folders.
func collectImagePaths(cfg *config.Config, folders []string, recursive bool) ([]string, error) {
	var filePaths []string
	for _, folderPath := range folders {
		info, err := os.Stat(folderPath)
		if err != nil {
			return nil, fmt.Errorf("cannot access folder %s: %w", folderPath, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", folderPath)
		}

		if recursive {
			err := filepath.WalkDir(folderPath, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && cfg.MediaTypeForFile(d.Name()) != "" {
					filePaths = append(filePaths, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("cannot walk folder %s: %w", folderPath, err)
			}
			continue
		}

		entries, err := os.ReadDir(folderPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read folder %s: %w", folderPath, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || cfg.MediaTypeForFile(entry.Name()) == "" {
				continue
			}
			filePaths = append(filePaths, filepath.Join(folderPath, entry.Name()))
		}
	}
	return filePaths, nil
}

// loadFolderFiles pushes the collected files into the pipeline and applies
// shared metadata to the accepted items.
func loadFolderFiles(cfg *config.Config, pipeline *batch.Controller, filePaths []string, department, accessLevel string) batch.AddReport {
	files := make([]batch.IncomingFile, 0, len(filePaths))
	var unreadable []batch.RejectedFile
	for _, path := range filePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			unreadable = append(unreadable, batch.RejectedFile{FileName: filepath.Base(path), Reason: "cannot read file"})
			continue
		}
		files = append(files, batch.IncomingFile{
			Name:        filepath.Base(path),
			ContentType: cfg.MediaTypeForFile(path),
			Data:        data,
		})
	}

	report := pipeline.AddFiles(files)
	report.Rejected = append(report.Rejected, unreadable...)

	if department == "" && accessLevel == "" {
		return report
	}

	patch := batch.MetadataPatch{}
	if department != "" {
		patch.Department = &department
	}
	if accessLevel != "" {
		patch.AccessLevel = &accessLevel
	}
	for i, item := range report.Accepted {
		updated, err := pipeline.UpdateItemMetadata(item.ID, patch)
		if err == nil {
			report.Accepted[i] = updated
		}
	}
	return report
}

// runBatch starts one processing run and renders progress until it completes.
func runBatch(pipeline *batch.Controller, total int) error {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	events := pipeline.AddListener()
	defer pipeline.RemoveListener(events)

	// Items resolved before this run must not move the bar.
	before := pipeline.Stats()
	base := before.Success + before.Failed

	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("starting batch: %w", err)
	}

	done := 0
	for event := range events {
		switch event.Type {
		case batch.EventProgress:
			stats, ok := event.Data.(batch.Stats)
			if !ok {
				continue
			}
			if finished := stats.Success + stats.Failed - base; finished > done {
				_ = bar.Add(finished - done)
				done = finished
			}
		case batch.EventCompleted:
			fmt.Println()
			return nil
		}
	}
	return nil
}

// printSummary prints per-item outcomes and the final summary line.
func printSummary(pipeline *batch.Controller) error {
	stats := pipeline.Stats()

	for _, item := range pipeline.Items() {
		switch item.Status {
		case batch.StatusSuccess:
			if item.Result != nil {
				fmt.Printf("Enrolled %s (face id %d)\n", item.DisplayName, item.Result.FaceID)
			}
		case batch.StatusFailed:
			fmt.Printf("Failed %s: %s\n", item.DisplayName, item.ErrorMessage)
		}
	}

	fmt.Printf("\nDone! %d enrolled, %d failed, %d total (%s success rate)\n",
		stats.Success, stats.Failed, stats.Total, stats.DisplayRate())

	if stats.Failed > 0 {
		return fmt.Errorf("%d item(s) failed to enroll", stats.Failed)
	}
	return nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	recursive := mustGetBool(cmd, "recursive")
	department := mustGetString(cmd, "department")
	accessLevel := mustGetString(cmd, "access-level")
	retries := mustGetInt(cmd, "retry")

	cfg := config.Load()
	if cfg.Enrollment.URL == "" {
		return errors.New("ENROLL_API_URL environment variable is required")
	}

	filePaths, err := collectImagePaths(cfg, args, recursive)
	if err != nil {
		return err
	}
	if len(filePaths) == 0 {
		fmt.Println("No image files found in the specified folders.")
		return nil
	}

	fmt.Printf("Found %d image(s) in %d folder(s)\n", len(filePaths), len(args))

	client, err := enrollment.New(cfg.Enrollment.URL)
	if err != nil {
		return fmt.Errorf("invalid enrollment service URL: %w", err)
	}

	store, err := preview.NewStore(cfg.Pipeline.PreviewDir, cfg.Pipeline.PreviewMaxEdge)
	if err != nil {
		return fmt.Errorf("failed to create preview store: %w", err)
	}
	defer store.Close()

	queue := batch.NewQueue()
	pipeline := batch.NewController(queue, batch.NewValidator(queue, store), client, batch.Options{
		ItemDelay:   cfg.Pipeline.ItemDelay,
		CallTimeout: cfg.Enrollment.Timeout,
	})

	report := loadFolderFiles(cfg, pipeline, filePaths, department, accessLevel)
	for _, rejected := range report.Rejected {
		fmt.Printf("Skipped %s: %s\n", rejected.FileName, rejected.Reason)
	}
	if len(report.Accepted) == 0 {
		return errors.New("no files were accepted for enrollment")
	}

	fmt.Printf("\nEnrolling %d face(s)...\n", len(report.Accepted))
	if err := runBatch(pipeline, len(report.Accepted)); err != nil {
		return err
	}

	for attempt := 1; attempt <= retries; attempt++ {
		failed := pipeline.Stats().Failed
		if failed == 0 {
			break
		}
		fmt.Printf("\nRetrying %d failed item(s), attempt %d of %d...\n", failed, attempt, retries)
		if pipeline.RetryFailed() == 0 {
			break
		}
		if err := runBatch(pipeline, failed); err != nil {
			return err
		}
	}

	return printSummary(pipeline)
}
