package tasks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mikestefanello/backlite"
)

var (
	ErrUnknownTaskType = errors.New("unknown task type")
	ErrMissingParam    = errors.New("missing task parameter")
)

// TypeInfo describes a task type that can be triggered by hand.
type TypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// Types lists the task types accepted by Build.
func Types() []TypeInfo {
	return []TypeInfo{
		{Type: "reconcile_pack", Description: "Recompute one pack's category counts and example positions", Queue: ReconcilePackTask{}.Config().Name},
		{Type: "reconcile_all_packs", Description: "Reconcile every pack", Queue: ReconcileAllPacksTask{}.Config().Name},
		{Type: "import_article", Description: "Fetch a web page and store it as an article", Queue: ImportArticleTask{}.Config().Name},
	}
}

// Params carries the optional inputs of Build.
type Params struct {
	PackID string `json:"pack_id,omitempty" form:"pack_id"`
	URL    string `json:"url,omitempty" form:"url"`
}

// Build creates the task for taskType from params.
func Build(taskType string, p Params) (backlite.Task, error) {
	switch taskType {
	case "reconcile_pack":
		id := strings.TrimSpace(p.PackID)
		if id == "" {
			return nil, fmt.Errorf("%w: pack_id is required for %s", ErrMissingParam, taskType)
		}
		return ReconcilePackTask{PackID: id}, nil

	case "reconcile_all_packs":
		return ReconcileAllPacksTask{}, nil

	case "import_article":
		u := strings.TrimSpace(p.URL)
		if u == "" {
			return nil, fmt.Errorf("%w: url is required for %s", ErrMissingParam, taskType)
		}
		return ImportArticleTask{URL: u}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}
}

// StatusString renders a backlite task status.
func StatusString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
