package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTasksCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "tasks",
		Short:             "Work with tasks on the CRM service",
		PersistentPreRunE: s.openAuthenticated,
	}

	var projectID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := s.client.ListTasks(cmd.Context(), projectID)
			if err != nil {
				return s.remoteError(cmd.Context(), "list tasks", err)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPROJECT\tASSIGNEE\tDUE")
			for _, t := range tasks {
				due := "-"
				if t.DueDate != nil {
					due = t.DueDate.Format("2006-01-02")
				}
				project := t.ProjectName
				if project == "" {
					project = t.ProjectID
				}
				assignee := t.AssignedToEmail
				if assignee == "" {
					assignee = t.AssignedTo
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, project, assignee, due)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&projectID, "project", "", "Only tasks of this project")

	move := &cobra.Command{
		Use:   "move <taskId> <status>",
		Short: "Move a task to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := s.client.Transition(cmd.Context(), args[0], args[1])
			if err != nil {
				return s.remoteError(cmd.Context(), "move task", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", task.ID, task.Status)
			return nil
		},
	}

	transitions := &cobra.Command{
		Use:   "transitions <taskId>",
		Short: "Show the statuses you may move a task to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			available, err := s.client.Transitions(cmd.Context(), args[0])
			if err != nil {
				return s.remoteError(cmd.Context(), "load transitions", err)
			}
			out := cmd.OutOrStdout()
			if len(available.Transitions) == 0 {
				fmt.Fprintf(out, "Task %s (%s): no transitions available\n", available.TaskID, available.Status)
				return nil
			}
			fmt.Fprintf(out, "Task %s (%s): %s\n", available.TaskID, available.Status, strings.Join(available.Transitions, ", "))
			return nil
		},
	}

	cmd.AddCommand(list, move, transitions)
	return cmd
}
