package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/internal/streams"
)

// --- cameras ---

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Manage cameras",
}

var camerasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cameras",
	RunE: func(cmd *cobra.Command, args []string) error {
		var active *bool
		if cmd.Flags().Changed("active") {
			v, _ := cmd.Flags().GetBool("active")
			active = &v
		}

		c, err := newConsole()
		if err != nil {
			return err
		}
		cams, err := c.client.Cameras.ListCameras(commandContext(cmd), active)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(cams))
		for _, cam := range cams {
			rows = append(rows, []string{cam.CameraID, cam.Name, string(cam.SourceType), yesNo(cam.IsActive), orDash(cam.Location), coords(cam)})
		}
		return printTable(cams, []string{"CAMERA", "NAME", "SOURCE", "ACTIVE", "LOCATION", "COORDS"}, rows)
	},
}

var camerasGetCmd = &cobra.Command{
	Use:   "get <camera-id>",
	Short: "Show one camera",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConsole()
		if err != nil {
			return err
		}
		cam, err := c.client.Cameras.GetCamera(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		return printJSON(cam)
	},
}

var camerasCreateCmd = &cobra.Command{
	Use:   "create <camera-id>",
	Short: "Register a camera",
	Long: `Register a camera.

Examples:
  consolectl cameras create cam-1 --name Lobby --stream-url rtsp://10.0.0.5/live
  consolectl cameras create cam-2 --source video --video-path /data/lobby.mp4 --config '{"fps":5}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := cameraFlags(cmd)
		if err != nil {
			return err
		}
		in.CameraID = args[0]

		c, err := newConsole()
		if err != nil {
			return err
		}
		cam, err := c.client.Cameras.CreateCamera(commandContext(cmd), in)
		if err != nil {
			return err
		}
		printSuccess("Created camera %s", cam.CameraID)
		return nil
	},
}

var camerasUpdateCmd = &cobra.Command{
	Use:   "update <camera-id>",
	Short: "Edit a camera",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := cameraFlags(cmd)
		if err != nil {
			return err
		}

		c, err := newConsole()
		if err != nil {
			return err
		}
		if _, err := c.client.Cameras.UpdateCamera(commandContext(cmd), args[0], in); err != nil {
			return err
		}
		printSuccess("Updated camera %s", args[0])
		return nil
	},
}

var camerasDeleteCmd = &cobra.Command{
	Use:   "delete <camera-id>",
	Short: "Delete a camera",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm("delete camera %s", args[0]); err != nil {
			return err
		}
		c, err := newConsole()
		if err != nil {
			return err
		}
		if err := c.client.Cameras.DeleteCamera(commandContext(cmd), args[0]); err != nil {
			return err
		}
		printSuccess("Deleted camera %s", args[0])
		return nil
	},
}

func init() {
	camerasListCmd.Flags().Bool("active", false, "only active (or, with =false, inactive) cameras")

	for _, cmd := range []*cobra.Command{camerasCreateCmd, camerasUpdateCmd} {
		cmd.Flags().String("name", "", "display name")
		cmd.Flags().String("source", string(models.SourceTypeStream), "source type: stream or video")
		cmd.Flags().String("stream-url", "", "stream URL")
		cmd.Flags().String("video-path", "", "video file path")
		cmd.Flags().String("location", "", "location label")
		cmd.Flags().String("description", "", "description")
		cmd.Flags().Float64("lat", 0, "latitude")
		cmd.Flags().Float64("lon", 0, "longitude")
		cmd.Flags().Bool("active", true, "whether the camera is active")
		cmd.Flags().String("config", "", "processing config as JSON text")
		cmd.Flags().String("config-file", "", "read processing config from a JSON file")
	}

	camerasCmd.AddCommand(camerasListCmd, camerasGetCmd, camerasCreateCmd, camerasUpdateCmd, camerasDeleteCmd)
}

// cameraFlags collects the flags the operator set. Unset optional flags stay
// out of the payload.
func cameraFlags(cmd *cobra.Command) (backend.CameraInput, error) {
	f := cmd.Flags()
	var in backend.CameraInput
	in.Name, _ = f.GetString("name")
	source, _ := f.GetString("source")
	in.SourceType = models.SourceType(source)
	in.StreamURL, _ = f.GetString("stream-url")
	in.VideoPath, _ = f.GetString("video-path")
	in.Location, _ = f.GetString("location")
	in.Description, _ = f.GetString("description")
	if f.Changed("lat") {
		v, _ := f.GetFloat64("lat")
		in.Lat = &v
	}
	if f.Changed("lon") {
		v, _ := f.GetFloat64("lon")
		in.Lon = &v
	}
	if f.Changed("active") {
		v, _ := f.GetBool("active")
		in.IsActive = &v
	}
	in.ConfigText, _ = f.GetString("config")
	if path, _ := f.GetString("config-file"); path != "" {
		if in.ConfigText != "" {
			return in, fmt.Errorf("--config and --config-file are mutually exclusive")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return in, fmt.Errorf("reading config file: %w", err)
		}
		in.ConfigText = string(data)
	}
	return in, nil
}

func coords(cam models.Camera) string {
	if cam.Lat == nil || cam.Lon == nil {
		return "-"
	}
	return strconv.FormatFloat(*cam.Lat, 'f', 5, 64) + "," + strconv.FormatFloat(*cam.Lon, 'f', 5, 64)
}

// --- streams ---

var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "Start, stop and inspect camera streams",
}

var streamsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cameras with a running stream job",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		snap := reg.Snapshot()

		ids := make([]string, 0, len(snap))
		for id := range snap {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, []string{id, snap[id]})
		}
		return printTable(snap, []string{"CAMERA", "JOB"}, rows)
	},
}

var streamsStartCmd = &cobra.Command{
	Use:   "start <camera-id>",
	Short: "Start processing a camera's stream or video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConsole()
		if err != nil {
			return err
		}
		reg, err := c.registry(cmd)
		if err != nil {
			return err
		}
		cam, err := c.client.Cameras.GetCamera(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		if cam.CameraID == "" {
			cam.CameraID = args[0]
		}
		jobID, err := reg.Start(commandContext(cmd), cam)
		if err != nil {
			return err
		}
		printSuccess("Started %s as job %s", args[0], jobID)
		return nil
	},
}

var streamsStopCmd = &cobra.Command{
	Use:   "stop <camera-id>",
	Short: "Stop a camera's running stream job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		if err := reg.Stop(commandContext(cmd), args[0]); err != nil {
			return err
		}
		printSuccess("Stopped %s", args[0])
		return nil
	},
}

var streamsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a stream job's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConsole()
		if err != nil {
			return err
		}
		s, err := c.client.Cameras.StreamStatus(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(s)
		}
		fmt.Fprintf(stdout, "%s %s (camera %s)\n", colorize(colorBold, "Job:"), s.JobID, orDash(s.CameraID))
		fmt.Fprintf(stdout, "  status:    %s\n", s.Status)
		fmt.Fprintf(stdout, "  frames:    %d\n", s.FramesProcessed)
		fmt.Fprintf(stdout, "  persons:   %d\n", s.PersonsDetected)
		fmt.Fprintf(stdout, "  started:   %s\n", orDash(s.StartedAt))
		fmt.Fprintf(stdout, "  ended:     %s\n", orDash(s.EndedAt))
		fmt.Fprintf(stdout, "  duration:  %.0fs\n", s.DurationSeconds)
		if s.ErrorMessage != "" {
			fmt.Fprintf(stdout, "  error:     %s\n", colorize(colorRed, s.ErrorMessage))
		}
		return nil
	},
}

func init() {
	streamsCmd.AddCommand(streamsListCmd, streamsStartCmd, streamsStopCmd, streamsStatusCmd)
}

// registry returns a stream registry seeded from the backend's listing, so
// one-shot commands see the same camera-to-job map the server keeps.
func (c *console) registry(cmd *cobra.Command) (*streams.Registry, error) {
	reg := streams.NewRegistry(c.client.Cameras, nil, c.cfg.Polling.StreamRefresh)
	if err := reg.Refresh(commandContext(cmd)); err != nil {
		return nil, err
	}
	return reg, nil
}

func loadRegistry(cmd *cobra.Command) (*streams.Registry, error) {
	c, err := newConsole()
	if err != nil {
		return nil, err
	}
	return c.registry(cmd)
}
