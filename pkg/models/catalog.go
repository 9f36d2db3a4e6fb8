package models

import (
	"errors"
	"fmt"
)

// DataSource names an external entity domain a node may read when executed.
type DataSource string

const (
	DataSourceEmployees   DataSource = "employees"
	DataSourceDepartments DataSource = "departments"
	DataSourcePositions   DataSource = "positions"
	DataSourceSalaries    DataSource = "salaries"
	DataSourcePerformance DataSource = "performance"
	DataSourceTraining    DataSource = "training"
	DataSourceAttendance  DataSource = "attendance"
)

// ErrUnknownDataSource is returned for data sources outside the catalog.
var ErrUnknownDataSource = errors.New("unknown data source")

// DataSourceEntry describes one item of the data-source catalog.
type DataSourceEntry struct {
	ID    DataSource `json:"id"`
	Label string     `json:"label"`
}

var dataSourceCatalog = []DataSourceEntry{
	{ID: DataSourceEmployees, Label: "Employees"},
	{ID: DataSourceDepartments, Label: "Departments"},
	{ID: DataSourcePositions, Label: "Positions"},
	{ID: DataSourceSalaries, Label: "Salaries"},
	{ID: DataSourcePerformance, Label: "Performance"},
	{ID: DataSourceTraining, Label: "Training"},
	{ID: DataSourceAttendance, Label: "Attendance"},
}

// DataSourceCatalog returns the fixed catalog in display order.
func DataSourceCatalog() []DataSourceEntry {
	out := make([]DataSourceEntry, len(dataSourceCatalog))
	copy(out, dataSourceCatalog)

	return out
}

func validateDataSources(sources []DataSource) error {
	for _, source := range sources {
		known := false

		for _, entry := range dataSourceCatalog {
			if entry.ID == source {
				known = true

				break
			}
		}

		if !known {
			return fmt.Errorf("%w: %q", ErrUnknownDataSource, source)
		}
	}

	return nil
}

// PaletteEntry is how a node type shows up in the palette and on the canvas.
type PaletteEntry struct {
	Type        NodeType `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
}

var palette = map[NodeType]PaletteEntry{
	NodeTypeStart: {
		Type: NodeTypeStart, Title: "Start", Icon: "play",
		Description: "Entry point of the workflow", Color: "#22c55e",
	},
	NodeTypeApproval: {
		Type: NodeTypeApproval, Title: "Approval", Icon: "check-circle",
		Description: "Requires a sign-off before continuing", Color: "#3b82f6",
	},
	NodeTypeTask: {
		Type: NodeTypeTask, Title: "Task", Icon: "clipboard",
		Description: "Work item assigned to a person or role", Color: "#8b5cf6",
	},
	NodeTypeCondition: {
		Type: NodeTypeCondition, Title: "Condition", Icon: "git-branch",
		Description: "Branches on an expression", Color: "#f59e0b",
	},
	NodeTypeNotification: {
		Type: NodeTypeNotification, Title: "Notification", Icon: "bell",
		Description: "Sends a message", Color: "#06b6d4",
	},
	NodeTypeAssignment: {
		Type: NodeTypeAssignment, Title: "Assignment", Icon: "user-plus",
		Description: "Assigns ownership to a person or role", Color: "#ec4899",
	},
	NodeTypeEnd: {
		Type: NodeTypeEnd, Title: "End", Icon: "stop",
		Description: "Terminates the workflow", Color: "#ef4444",
	},
}

// Palette returns the node palette in display order.
func Palette() []PaletteEntry {
	types := NodeTypes()

	out := make([]PaletteEntry, 0, len(types))
	for _, t := range types {
		out = append(out, palette[t])
	}

	return out
}

// PaletteEntryFor returns the palette entry for t, or a neutral entry for unknown types.
func PaletteEntryFor(t NodeType) PaletteEntry {
	if entry, ok := palette[t]; ok {
		return entry
	}

	return PaletteEntry{Type: t, Title: string(t), Icon: "circle", Color: "#6b7280"}
}
