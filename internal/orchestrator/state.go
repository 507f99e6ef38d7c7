package orchestrator

import (
	"path/filepath"

	"github.com/episodic/episodic/internal/downloader/types"
	"github.com/episodic/episodic/internal/library"
	"github.com/episodic/episodic/internal/taskstore"
)

// Observation is what one poll learned about a task's torrent.
type Observation struct {
	// Found is false when the client has no record of the hash or could not
	// be reached.
	Found  bool
	Status types.ClientStatus
	// FilePath is where the completed file is expected on disk.
	FilePath   string
	FileExists bool
}

// FilePath resolves the media file location for a client status.
func FilePath(status types.ClientStatus) string {
	return filepath.Join(status.SavePath, status.Name)
}

// Action is the side effect a step requires before its transition.
type Action int

const (
	ActionNone Action = iota
	// ActionRegisterVideo writes the registry entry.
	ActionRegisterVideo
	// ActionMountRoute exposes the file over HTTP.
	ActionMountRoute
	// ActionNotify tells the subscriber the release is ready.
	ActionNotify
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionRegisterVideo:
		return "register_video"
	case ActionMountRoute:
		return "mount_route"
	case ActionNotify:
		return "notify"
	default:
		return "unknown"
	}
}

// Step is one forward transition and the effect that must succeed first.
type Step struct {
	Action Action
	From   taskstore.Status
	Next   taskstore.Status
	Video  library.Video
}

// Advance decides the next step for a task. It performs no I/O; the same
// task and observation always produce the same step, and Next is always
// exactly one status ahead of the current one.
func Advance(task taskstore.Task, obs Observation) Step {
	none := Step{Action: ActionNone, From: task.Status, Next: task.Status}
	if !obs.Found {
		return none
	}

	video := library.Video{
		ID:    task.TorrentID,
		Title: obs.Status.Name,
		Path:  obs.FilePath,
	}

	switch task.Status {
	case taskstore.StatusDownloading:
		if !obs.Status.Complete() {
			return none
		}
		return Step{Action: ActionRegisterVideo, From: task.Status, Next: taskstore.StatusDownloaded, Video: video}
	case taskstore.StatusDownloaded:
		if !obs.FileExists {
			return none
		}
		return Step{Action: ActionMountRoute, From: task.Status, Next: taskstore.StatusWaitForSend, Video: video}
	case taskstore.StatusWaitForSend:
		return Step{Action: ActionNotify, From: task.Status, Next: taskstore.StatusSent, Video: video}
	default:
		return none
	}
}
