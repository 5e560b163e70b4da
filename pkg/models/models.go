package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Tool string

const (
	ToolSplitter  Tool = "splitter"
	ToolChords    Tool = "chords"
	ToolMastering Tool = "mastering"
)

func (t Tool) Valid() bool {
	switch t {
	case ToolSplitter, ToolChords, ToolMastering:
		return true
	}
	return false
}

type Asset struct {
	ID          string                 `json:"id"`
	WorkspaceID string                 `json:"workspace_id"`
	Filename    string                 `json:"filename"`
	ContentType string                 `json:"content_type"`
	Data        []byte                 `json:"data,omitempty"`
	Size        int                    `json:"size"`
	Checksum    string                 `json:"checksum,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

type JobStatus string

const (
	StatusIdle    JobStatus = "idle"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusFailed  JobStatus = "failed"
)

type Job struct {
	ID          string           `json:"id"`
	WorkspaceID string           `json:"workspace_id"`
	Tool        Tool             `json:"tool"`
	Status      JobStatus        `json:"status"`
	Error       string           `json:"error,omitempty"`
	AssetID     string           `json:"asset_id"`
	Params      *MasteringParams `json:"params,omitempty"`
	Outputs     []string         `json:"outputs,omitempty"`
	Chords      []string         `json:"chords,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
}

// Finish stamps the job's end time.
func (j *Job) Finish() {
	now := time.Now()
	j.FinishedAt = &now
}

var ErrInvalidParam = errors.New("invalid mastering parameter")

// MasteringParams are the mastering controls, each on a 0..100 scale.
type MasteringParams struct {
	HighCutoff   int `json:"high_cutoff"`
	LowCutoff    int `json:"low_cutoff"`
	DecibelLevel int `json:"decibel_level"`
}

func DefaultMasteringParams() MasteringParams {
	return MasteringParams{HighCutoff: 50, LowCutoff: 50, DecibelLevel: 50}
}

func (p MasteringParams) Validate() error {
	for _, f := range p.Fields() {
		if f.Value < 0 || f.Value > 100 {
			return fmt.Errorf("%w: %s=%d, want 0..100", ErrInvalidParam, f.Name, f.Value)
		}
	}
	return nil
}

type ParamField struct {
	Name  string
	Value int
}

// Fields lists the parameters under their wire names, in a fixed order.
func (p MasteringParams) Fields() []ParamField {
	return []ParamField{
		{"high_cutoff", p.HighCutoff},
		{"low_cutoff", p.LowCutoff},
		{"decibel_level", p.DecibelLevel},
	}
}

// TrackRole names a playable stream within a workspace.
type TrackRole string

const (
	RoleOriginal TrackRole = "original"
	RoleVocals   TrackRole = "vocals"
	RoleDrums    TrackRole = "drums"
	RoleBass     TrackRole = "bass"
	RoleOthers   TrackRole = "others"
	RoleMastered TrackRole = "mastered"

	// RoleChords is the chord sheet. It can be downloaded but has no player.
	RoleChords TrackRole = "chords"
)

// StemRoles is the output set of the splitter, in display order.
var StemRoles = []TrackRole{RoleVocals, RoleDrums, RoleBass, RoleOthers}

// DownloadName returns the filename a track is saved under.
func (r TrackRole) DownloadName() string {
	switch r {
	case RoleOriginal:
		return "original_audio.mp3"
	case RoleMastered:
		return "mastered_audio.mp3"
	case RoleChords:
		return "chords.mid"
	default:
		return string(r) + ".mp3"
	}
}

type Track struct {
	Role     TrackRole `json:"role"`
	AssetID  string    `json:"asset_id"`
	Filename string    `json:"filename"`
}

// RoleAsset is a processed asset tagged with the track it feeds.
type RoleAsset struct {
	Role  TrackRole
	Asset *Asset
}

// PipelineMessage carries one job through the processing stages.
type PipelineMessage struct {
	Job     *Job
	Input   *Asset
	Outputs []RoleAsset
	Chords  []string
	Error   error
	Stage   string
}

func NewAsset(workspaceID, filename, contentType string, data []byte) *Asset {
	return &Asset{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
		Size:        len(data),
		Metadata:    make(map[string]interface{}),
		CreatedAt:   time.Now(),
	}
}

func NewJob(workspaceID string, tool Tool, asset *Asset) *Job {
	return &Job{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Tool:        tool,
		Status:      StatusRunning,
		AssetID:     asset.ID,
		StartedAt:   time.Now(),
	}
}

func NewTrack(role TrackRole, asset *Asset) Track {
	return Track{
		Role:     role,
		AssetID:  asset.ID,
		Filename: role.DownloadName(),
	}
}
