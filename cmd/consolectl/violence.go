package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/incidents"
	"github.com/your-org/vsconsole/internal/models"
	"github.com/your-org/vsconsole/internal/routes"
)

// --- violence ---

var violenceCmd = &cobra.Command{
	Use:   "violence",
	Short: "Manage violence-detection cameras",
}

var violenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List detection cameras",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConsole()
		if err != nil {
			return err
		}
		cams, err := c.client.Violence.ListCameras(commandContext(cmd))
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(cams))
		for _, cam := range cams {
			rows = append(rows, []string{cam.CameraID, cam.URL, yesNo(cam.IsActive), yesNo(cam.IsDetection), orDash(cam.LastRun)})
		}
		return printTable(cams, []string{"CAMERA", "URL", "ACTIVE", "DETECTING", "LAST RUN"}, rows)
	},
}

var violenceRegisterCmd = &cobra.Command{
	Use:   "register <camera-id>",
	Short: "Register a camera with the detection service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		detect, _ := cmd.Flags().GetBool("detect")

		c, err := newConsole()
		if err != nil {
			return err
		}
		cam, err := c.client.Violence.RegisterCamera(commandContext(cmd), backend.RegisterViolenceCamera{
			CameraID:    args[0],
			URL:         url,
			IsDetection: detect,
		})
		if err != nil {
			return err
		}
		printSuccess("Registered %s (id %d)", cam.CameraID, cam.ID)
		return nil
	},
}

var violenceUpdateCmd = &cobra.Command{
	Use:   "update <camera-id>",
	Short: "Change a detection camera's URL or active flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		req := backend.UpdateViolenceCamera{CameraID: args[0], URL: url}
		if cmd.Flags().Changed("active") {
			active, _ := cmd.Flags().GetBool("active")
			req.IsActive = &active
		}

		c, err := newConsole()
		if err != nil {
			return err
		}
		if _, err := c.client.Violence.UpdateCamera(commandContext(cmd), args[0], req); err != nil {
			return err
		}
		printSuccess("Updated %s", args[0])
		return nil
	},
}

var violenceStartCmd = &cobra.Command{
	Use:   "start <camera-id>",
	Short: "Start detection on a camera",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConsole()
		if err != nil {
			return err
		}
		cam, err := c.client.Violence.StartDetection(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		printSuccess("Started detection on %s (detecting: %s)", args[0], yesNo(cam.IsDetection))
		return nil
	},
}

var violenceStopCmd = &cobra.Command{
	Use:   "stop <camera-id>",
	Short: "Stop detection on a camera",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConsole()
		if err != nil {
			return err
		}
		cam, err := c.client.Violence.StopDetection(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		printSuccess("Stopped detection on %s (detecting: %s)", args[0], yesNo(cam.IsDetection))
		return nil
	},
}

var violenceDeleteCmd = &cobra.Command{
	Use:   "delete <camera-id>",
	Short: "Remove a camera from the detection service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm("remove detection camera %s", args[0]); err != nil {
			return err
		}
		c, err := newConsole()
		if err != nil {
			return err
		}
		if err := c.client.Violence.DeleteCamera(commandContext(cmd), args[0]); err != nil {
			return err
		}
		printSuccess("Removed %s", args[0])
		return nil
	},
}

func init() {
	violenceRegisterCmd.Flags().String("url", "", "stream URL")
	violenceRegisterCmd.Flags().Bool("detect", true, "enable detection right away")
	_ = violenceRegisterCmd.MarkFlagRequired("url")
	violenceUpdateCmd.Flags().String("url", "", "stream URL")
	violenceUpdateCmd.Flags().Bool("active", true, "whether the camera is active (unchanged when omitted)")
	_ = violenceUpdateCmd.MarkFlagRequired("url")

	violenceCmd.AddCommand(violenceListCmd, violenceRegisterCmd, violenceUpdateCmd,
		violenceStartCmd, violenceStopCmd, violenceDeleteCmd)
}

// --- incidents ---

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "Review violence incidents",
}

var incidentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List incidents, optionally for one camera",
	RunE: func(cmd *cobra.Command, args []string) error {
		cameraID, _ := cmd.Flags().GetString("camera")
		limit, _ := cmd.Flags().GetInt("limit")

		c, err := newConsole()
		if err != nil {
			return err
		}
		items, err := c.incidents().Refresh(commandContext(cmd), cameraID, limit)
		if err != nil {
			return err
		}
		return printIncidents(c, items)
	},
}

var incidentsGetCmd = &cobra.Command{
	Use:   "get <incident-id>",
	Short: "Show an incident with its person clips",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIncidentID(args[0])
		if err != nil {
			return err
		}
		c, err := newConsole()
		if err != nil {
			return err
		}
		inc, err := c.incidents().Open(commandContext(cmd), id)
		if err != nil {
			if inc.ID == 0 {
				return err
			}
			printWarning("detail unavailable, showing the listed incident: %v", err)
		}
		return printIncident(c, inc)
	},
}

var incidentsReviewCmd = &cobra.Command{
	Use:   "review <incident-id>",
	Short: "Mark an incident as reviewed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIncidentID(args[0])
		if err != nil {
			return err
		}
		c, err := newConsole()
		if err != nil {
			return err
		}
		v := c.incidents()
		ctx := commandContext(cmd)
		if inc, err := v.Open(ctx, id); err != nil && inc.ID == 0 {
			return err
		}
		if err := v.Review(ctx, id); err != nil {
			return err
		}
		printSuccess("Incident %d reviewed", id)
		if inc, ok := v.Current(); ok {
			return printIncident(c, inc)
		}
		return nil
	},
}

var incidentsDeleteCmd = &cobra.Command{
	Use:   "delete <incident-id>",
	Short: "Delete an incident",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIncidentID(args[0])
		if err != nil {
			return err
		}
		if err := confirm("delete incident %d", id); err != nil {
			return err
		}
		c, err := newConsole()
		if err != nil {
			return err
		}
		if err := c.incidents().Delete(commandContext(cmd), id); err != nil {
			return err
		}
		printSuccess("Deleted incident %d", id)
		return nil
	},
}

var incidentsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete a camera's incidents within a time range",
	Long: `Delete a camera's incidents within a time range.

Examples:
  consolectl incidents purge --camera cam-1 --from 2024-05-01T00:00:00Z --to 2024-05-02T00:00:00Z`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cameraID, _ := cmd.Flags().GetString("camera")
		from, err := timeFlag(cmd, "from")
		if err != nil {
			return err
		}
		to, err := timeFlag(cmd, "to")
		if err != nil {
			return err
		}
		if err := confirm("delete incidents of %s between %s and %s", cameraID, from.Format(time.RFC3339), to.Format(time.RFC3339)); err != nil {
			return err
		}

		c, err := newConsole()
		if err != nil {
			return err
		}
		items, err := c.incidents().DeleteRange(commandContext(cmd), cameraID, from, to)
		if err != nil {
			return err
		}
		printSuccess("Purged incidents of %s", cameraID)
		return printIncidents(c, items)
	},
}

var incidentsSearchCmd = &cobra.Command{
	Use:   "search-clip <clip-path>",
	Short: "Search footage for the person in an incident clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConsole()
		if err != nil {
			return err
		}
		res, err := c.incidentService().SearchFromClip(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		return submitted(cmd, c, res)
	},
}

var incidentsEvidenceCmd = &cobra.Command{
	Use:   "evidence <path>",
	Short: "Download an evidence image or clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		c, err := newConsole()
		if err != nil {
			return err
		}
		data, err := c.client.Violence.FetchEvidence(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		if out == "" || out == "-" {
			_, err := stdout.Write(data)
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("writing evidence: %w", err)
		}
		printSuccess("Saved %d bytes to %s", len(data), out)
		return nil
	},
}

func init() {
	incidentsListCmd.Flags().String("camera", "", "only this camera's incidents")
	incidentsListCmd.Flags().Int("limit", backend.DefaultIncidentLimit, "maximum incidents")
	incidentsPurgeCmd.Flags().String("camera", "", "camera id")
	incidentsPurgeCmd.Flags().String("from", "", "range start (RFC 3339)")
	incidentsPurgeCmd.Flags().String("to", "", "range end (RFC 3339)")
	_ = incidentsPurgeCmd.MarkFlagRequired("camera")
	incidentsSearchCmd.Flags().Bool("wait", false, "poll the job until it finishes")
	incidentsEvidenceCmd.Flags().StringP("out", "o", "", "output file (default stdout)")

	incidentsCmd.AddCommand(incidentsListCmd, incidentsGetCmd, incidentsReviewCmd,
		incidentsDeleteCmd, incidentsPurgeCmd, incidentsSearchCmd, incidentsEvidenceCmd)
}

// incidents returns a fresh review view; each command is its own operator
// session.
func (c *console) incidents() *incidents.View {
	return incidents.NewView(c.incidentService())
}

func (c *console) incidentService() *incidents.Service {
	return incidents.NewService(c.client.Violence, c.client.Query, nil)
}

func printIncident(c *console, inc models.Incident) error {
	if jsonOutput {
		return printJSON(inc)
	}
	fmt.Fprintf(stdout, "%s %d (camera %s)\n", colorize(colorBold, "Incident:"), inc.ID, inc.CameraID)
	fmt.Fprintf(stdout, "  time:     %s\n", orDash(inc.Timestamp))
	fmt.Fprintf(stdout, "  reviewed: %s\n", yesNo(inc.IsReviewed))
	fmt.Fprintf(stdout, "  evidence: %s\n", orDash(c.client.Violence.EvidenceURL(inc.Evidence)))
	for _, clip := range inc.PersonClips {
		fmt.Fprintf(stdout, "  clip %d:  %s\n", clip.ID, c.client.Violence.EvidenceURL(clip.ClipPath))
	}
	return nil
}

func printIncidents(c *console, items []models.Incident) error {
	rows := make([][]string, 0, len(items))
	for _, inc := range items {
		rows = append(rows, []string{
			strconv.FormatInt(inc.ID, 10),
			inc.CameraID,
			orDash(inc.Timestamp),
			yesNo(inc.IsReviewed),
			strconv.Itoa(len(inc.PersonClips)),
			orDash(c.client.Violence.EvidenceURL(inc.Evidence)),
		})
	}
	return printTable(items, []string{"ID", "CAMERA", "TIME", "REVIEWED", "CLIPS", "EVIDENCE"}, rows)
}

func parseIncidentID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid incident id %q", s)
	}
	return id, nil
}

func timeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("--%s is required", name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return t, nil
}

// --- routes ---

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Resolve and build console view links",
}

var routesResolveCmd = &cobra.Command{
	Use:   "resolve <fragment>",
	Short: "Show which view a URL fragment opens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view := routes.Default().Resolve(args[0])
		if jsonOutput {
			return printJSON(view)
		}
		fmt.Fprintf(stdout, "%s (%s)\n", view.Name, view.Title)
		for k, v := range view.Params {
			fmt.Fprintf(stdout, "  %s = %s\n", k, v)
		}
		return nil
	},
}

var routesPathCmd = &cobra.Command{
	Use:   "path <view> [param=value...]",
	Short: "Build the fragment that opens a view",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := make(map[string]string, len(args)-1)
		for _, kv := range args[1:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("expected param=value, got %q", kv)
			}
			params[k] = v
		}
		p, err := routes.Default().Path(args[0], params)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, p)
		return nil
	},
}

func init() {
	routesCmd.AddCommand(routesResolveCmd, routesPathCmd)
}
