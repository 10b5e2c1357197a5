package models

// ProjectAnalytics summarizes the task board of one project.
type ProjectAnalytics struct {
	ProjectID       string             `json:"projectId"`
	TotalTasks      int                `json:"totalTasks"`
	TasksByStatus   map[TaskStatus]int `json:"tasksByStatus"`
	TasksByAssignee map[string]int     `json:"tasksByAssignee"`
	Unassigned      int                `json:"unassigned"`
	// PastDue counts open tasks whose due date has passed, flagged or not.
	PastDue        int     `json:"pastDue"`
	CompletionRate float64 `json:"completionRate"`
}
