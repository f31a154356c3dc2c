package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/exam-room-api/internal/dto"
)

type batchFunc func(ctx context.Context, req dto.AllocationRequest) (*dto.AllocationBatchResponse, error)

type opener func(cmd *cobra.Command) (*backend, error)

type slotFlags struct {
	date  string
	start string
	end   string
}

func (f *slotFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Exam date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.start, "start", "", "Start time (HH:MM)")
	cmd.Flags().StringVar(&f.end, "end", "", "End time (HH:MM)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func (f *slotFlags) request() dto.SlotRequest {
	return dto.SlotRequest{Date: f.date, StartTime: f.start, EndTime: f.end}
}

func newBatchCmd(use, short string, opts *globalOptions, open opener, pick func(*backend) batchFunc) *cobra.Command {
	var (
		slot    slotFlags
		courses []string
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			resp, err := pick(b)(cmd.Context(), dto.AllocationRequest{SlotRequest: slot.request(), CourseIDs: courses})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			return writeBatch(cmd.OutOrStdout(), resp)
		},
	}
	slot.bind(cmd)
	cmd.Flags().StringSliceVar(&courses, "course", nil, "Course id to include; repeat or comma-separate. Defaults to every course needing seats")
	return cmd
}

func newConflictsCmd(opts *globalOptions, open opener) *cobra.Command {
	var (
		slot    slotFlags
		courses []string
	)
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List existing allocations in a slot that collide with candidate courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			report, err := b.allocations.CheckConflicts(cmd.Context(), dto.ConflictCheckRequest{SlotRequest: slot.request(), CourseIDs: courses})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			if !report.HasConflicts {
				fmt.Fprintln(cmd.OutOrStdout(), "no conflicts")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ROOM\tEXISTING COURSE\tCANDIDATE COURSE")
			for _, c := range report.Conflicts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.RoomName, c.ExistingCourseName, c.ConflictingCourseName)
			}
			return w.Flush()
		},
	}
	slot.bind(cmd)
	cmd.Flags().StringSliceVar(&courses, "course", nil, "Candidate course id; repeat or comma-separate")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func newCancelCmd(opts *globalOptions, open opener) *cobra.Command {
	var (
		slot   slotFlags
		course string
	)
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel every allocation of a course in a slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			resp, err := b.allocations.CancelCourse(cmd.Context(), dto.CancelAllocationRequest{SlotRequest: slot.request(), CourseID: course})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %d allocations of %s in %s\n", resp.Cancelled, resp.CourseID, resp.Slot.Key())
			return nil
		},
	}
	slot.bind(cmd)
	cmd.Flags().StringVar(&course, "course", "", "Course id")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func newSummaryCmd(opts *globalOptions, open opener) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the allocation summary of one exam date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			summary, _, err := b.summaries.DailySummary(cmd.Context(), dto.SummaryQuery{Date: date})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d courses, %d allocations, %d participants, %d wasted seats\n",
				summary.Date, summary.Courses, summary.Allocations, summary.Participants, summary.Waste)
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ROOM\tCAPACITY\tALLOCATIONS\tUTILIZATION")
			for _, r := range summary.Rooms {
				fmt.Fprintf(w, "%s\t%d\t%d\t%.2f%%\n", r.RoomName, r.Capacity, r.Allocations, r.Utilization)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Exam date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newStatsCmd(opts *globalOptions, open opener) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-day allocation statistics for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			stats, _, err := b.summaries.Statistics(cmd.Context(), dto.StatisticsQuery{StartDate: from, EndDate: to})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "DATE\tCOURSES\tALLOCATIONS\tPARTICIPANTS\tWASTE\tUTILIZATION")
			for _, d := range stats.Days {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.2f%%\n", d.Date, d.Courses, d.Allocations, d.Participants, d.Waste, d.Utilization)
			}
			s := stats.Summary
			fmt.Fprintf(w, "TOTAL (%d days)\t%d\t%d\t%d\t%d\t%.2f%%\n", s.Days, s.Courses, s.Allocations, s.Participants, s.Waste, s.AverageUtilization)
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeBatch(out io.Writer, resp *dto.AllocationBatchResponse) error {
	mode := "preview"
	if resp.Committed {
		mode = "committed"
	}
	fmt.Fprintf(out, "batch %s (%s, %s) slot %s\n", resp.BatchID, mode, resp.Strategy, resp.Slot.Key())

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "COURSE\tPARTICIPANTS\tROOMS\tWASTE\tRESULT")
	for _, r := range resp.Results {
		rooms := make([]string, 0, len(r.Assignments))
		for _, a := range r.Assignments {
			rooms = append(rooms, fmt.Sprintf("%s:%d", a.RoomName, a.Assigned))
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n", r.CourseCode, r.Participants, strings.Join(rooms, ","), r.TotalWaste, r.Message)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	s := resp.Summary
	fmt.Fprintf(out, "%d of %d courses allocated, %d rows, %d participants, %d wasted seats\n",
		s.Succeeded, s.TotalCourses, s.TotalAllocations, s.TotalParticipants, s.TotalWaste)
	return nil
}
