package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/internal/poller"
)

// --- jobs ---

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List and inspect search and upload jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")

		c, err := newConsole()
		if err != nil {
			return err
		}
		result, err := c.client.Query.ListJobs(commandContext(cmd), page, size)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(result.Content))
		for _, j := range result.Content {
			rows = append(rows, []string{j.JobID, string(j.Type), string(j.Status), j.CreatedAt, jobSubject(j)})
		}
		if err := printTable(result, []string{"JOB", "TYPE", "STATUS", "CREATED", "SUBJECT"}, rows); err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Fprintf(stdout, "page %d/%d, %d jobs\n", result.Number+1, max(result.TotalPages, 1), result.TotalElements)
		}
		return nil
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show a job with its matched frames",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConsole()
		if err != nil {
			return err
		}
		job, err := c.client.Query.GetJob(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		return printJob(job)
	},
}

var jobsWatchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Poll a job until it completes or fails",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")

		c, err := newConsole()
		if err != nil {
			return err
		}
		return watchJob(cmd, c, args[0], interval)
	},
}

func init() {
	jobsListCmd.Flags().Int("page", 0, "zero-based page")
	jobsListCmd.Flags().Int("size", 10, "page size")
	jobsWatchCmd.Flags().Duration("interval", poller.DefaultInterval, "poll interval")

	jobsCmd.AddCommand(jobsListCmd, jobsGetCmd, jobsWatchCmd)
}

func watchJob(cmd *cobra.Command, c *console, jobID string, interval time.Duration) error {
	if interval <= 0 {
		interval = c.cfg.Polling.Interval
	}
	var last models.JobStatus
	p := poller.New(c.client.Query.GetJob, interval)
	job, err := p.Poll(commandContext(cmd), jobID, func(j models.Job) {
		if j.Status != last {
			printStep("%s %s", j.JobID, j.Status)
			last = j.Status
		}
	})
	if err != nil {
		return err
	}
	if err := printJob(job); err != nil {
		return err
	}
	if job.Status == models.JobStatusFailed {
		return fmt.Errorf("job %s failed: %s", job.JobID, orDash(job.ErrorMessage))
	}
	return nil
}

func printJob(job models.Job) error {
	if jsonOutput {
		return printJSON(job)
	}
	fmt.Fprintf(stdout, "%s %s\n", colorize(colorBold, "Job:"), job.JobID)
	fmt.Fprintf(stdout, "  type:    %s\n", job.Type)
	fmt.Fprintf(stdout, "  status:  %s\n", job.Status)
	fmt.Fprintf(stdout, "  created: %s\n", orDash(job.CreatedAt))
	fmt.Fprintf(stdout, "  updated: %s\n", orDash(job.UpdatedAt))
	if s := jobSubject(job); s != "" {
		fmt.Fprintf(stdout, "  subject: %s\n", s)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(stdout, "  error:   %s\n", colorize(colorRed, job.ErrorMessage))
	}
	if len(job.Frames) == 0 {
		return nil
	}
	fmt.Fprintln(stdout)
	rows := make([][]string, 0, len(job.Frames))
	for _, f := range job.Frames {
		rows = append(rows, []string{f.ID, f.FrameTime, f.ImageURL})
	}
	return printTable(job.Frames, []string{"FRAME", "TIME", "IMAGE"}, rows)
}

func jobSubject(j models.Job) string {
	if j.TextValue != "" {
		return strconv.Quote(j.TextValue)
	}
	return j.ImageURL
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Submit text or image searches",
}

var searchTextCmd = &cobra.Command{
	Use:   "text <query>",
	Short: "Search footage by description",
	Long: `Search footage by description.

Examples:
  consolectl search text "man in a red jacket"
  consolectl search text "white van" --at 2024-05-01T10:00:00Z --duration 600 --wait`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := searchWindowFlags(cmd)
		if err != nil {
			return err
		}
		req.Text = strings.Join(args, " ")

		c, err := newConsole()
		if err != nil {
			return err
		}
		res, err := c.client.Query.SearchText(commandContext(cmd), req)
		if err != nil {
			return err
		}
		return submitted(cmd, c, res)
	},
}

var searchImageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Search footage by a reference image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := searchWindowFlags(cmd)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening image: %w", err)
		}
		defer f.Close()

		c, err := newConsole()
		if err != nil {
			return err
		}
		res, err := c.client.Query.SearchImage(commandContext(cmd), backend.File{
			Name: filepath.Base(args[0]),
			Data: f,
		}, req)
		if err != nil {
			return err
		}
		return submitted(cmd, c, res)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{searchTextCmd, searchImageCmd} {
		cmd.Flags().String("at", "", "center of the search window (RFC 3339)")
		cmd.Flags().Int("duration", 0, "search window length in seconds")
		cmd.Flags().Bool("wait", false, "poll the job until it finishes")
	}
	searchCmd.AddCommand(searchTextCmd, searchImageCmd)
}

func searchWindowFlags(cmd *cobra.Command) (backend.SearchRequest, error) {
	var req backend.SearchRequest
	if at, _ := cmd.Flags().GetString("at"); at != "" {
		ts, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return req, fmt.Errorf("invalid --at: %w", err)
		}
		req.Timestamp = ts
	}
	d, _ := cmd.Flags().GetInt("duration")
	if d < 0 {
		return req, fmt.Errorf("--duration must not be negative")
	}
	req.DurationSeconds = d
	return req, nil
}

// submitted reports a created job and optionally follows it.
func submitted(cmd *cobra.Command, c *console, res models.SubmitResult) error {
	wait, _ := cmd.Flags().GetBool("wait")
	if jsonOutput && !wait {
		return printJSON(res)
	}
	if res.JobID == "" {
		printWarning("submitted, but the service returned no job id")
		return nil
	}
	printSuccess("Submitted job %s", res.JobID)
	if !wait {
		return nil
	}
	return watchJob(cmd, c, res.JobID, 0)
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <video-file>",
	Short: "Upload a recorded video for indexing",
	Long: `Upload a recorded video for indexing.

Examples:
  consolectl upload ./lobby.mp4 --camera cam-1
  consolectl upload ./lobby.mp4 --camera cam-1 --start 2024-05-01T09:00:00Z --wait`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cameraID, _ := cmd.Flags().GetString("camera")
		videoID, _ := cmd.Flags().GetString("video-id")
		start, _ := cmd.Flags().GetString("start")
		name, _ := cmd.Flags().GetString("name")

		meta := backend.VideoMetadata{VideoID: videoID, CameraID: cameraID, MediaName: name}
		if meta.VideoID == "" && cameraID != "" {
			meta.VideoID = backend.DefaultVideoID(cameraID, time.Now())
		}
		if start != "" {
			ts, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			meta.TimestampStart = ts
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening video: %w", err)
		}
		defer f.Close()

		c, err := newConsole()
		if err != nil {
			return err
		}
		printStep("Uploading %s as %s", filepath.Base(args[0]), orDash(meta.VideoID))
		res, err := c.client.Storage.UploadVideo(commandContext(cmd), backend.File{
			Name: filepath.Base(args[0]),
			Data: f,
		}, meta)
		if err != nil {
			return err
		}
		return submitted(cmd, c, res)
	},
}

func init() {
	uploadCmd.Flags().String("camera", "", "camera id the footage came from")
	uploadCmd.Flags().String("video-id", "", "video id (default <camera>_<unix seconds>)")
	uploadCmd.Flags().String("start", "", "recording start time (RFC 3339)")
	uploadCmd.Flags().String("name", "", "media name")
	uploadCmd.Flags().Bool("wait", false, "poll the job until it finishes")
}
