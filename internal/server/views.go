package server

import (
	"time"

	"github.com/kilupskalvis/dbdiff/internal/models"
)

// projectView is a project as returned by the API. The password never leaves
// the server; hasPassword tells clients whether one is stored.
type projectView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	RDBMS       string `json:"rdbms"`
	User        string `json:"user"`
	HasPassword bool   `json:"hasPassword"`
	Host        string `json:"host"`
	Port        string `json:"port"`
	Schema      string `json:"schema"`
}

func newProjectView(p *models.Project) projectView {
	return projectView{
		ID:          p.ID,
		Name:        p.Name,
		Color:       p.Color,
		RDBMS:       string(p.RDBMS),
		User:        p.User,
		HasPassword: p.Password != "",
		Host:        p.Host,
		Port:        p.Port,
		Schema:      p.Schema,
	}
}

// projectRequest is the body of project create and update calls. A nil
// password on update keeps the stored one.
type projectRequest struct {
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	RDBMS    string  `json:"rdbms"`
	User     string  `json:"user"`
	Password *string `json:"password"`
	Host     string  `json:"host"`
	Port     string  `json:"port"`
	Schema   string  `json:"schema"`
}

// apply copies the request onto p.
func (r projectRequest) apply(p *models.Project) {
	p.Name = r.Name
	p.Color = r.Color
	p.RDBMS = models.RDBMS(r.RDBMS)
	p.User = r.User
	if r.Password != nil {
		p.Password = *r.Password
	}
	p.Host = r.Host
	p.Port = r.Port
	p.Schema = r.Schema
}

type snapshotView struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func newSnapshotView(s *models.SnapshotSummary) snapshotView {
	return snapshotView{ID: s.ID, ProjectID: s.ProjectID, Name: s.Name, CreatedAt: s.CreatedAt}
}

type resultView struct {
	SnapshotID string `json:"snapshotId"`
	Percent    int    `json:"percent"`
	Done       int    `json:"done"`
	Total      int    `json:"total"`
	Status     string `json:"status"`
}

func newResultView(r *models.SnapshotResult) resultView {
	return resultView{SnapshotID: r.SnapshotID, Percent: r.Percent, Done: r.Done, Total: r.Total, Status: r.Status}
}

type dumpConfigView struct {
	TableName string   `json:"tableName"`
	ColNames  []string `json:"colNames"`
	Value     string   `json:"value"`
}

func newDumpConfigViews(configs []models.DumpConfig) []dumpConfigView {
	views := make([]dumpConfigView, len(configs))
	for i, c := range configs {
		views[i] = dumpConfigView{TableName: c.TableName, ColNames: c.ColNames, Value: c.Value}
	}
	return views
}

type createSnapshotRequest struct {
	Name     string           `json:"name"`
	RowLimit int              `json:"rowLimit"`
	Configs  []dumpConfigView `json:"configs"`
}

func (r createSnapshotRequest) configs() []models.DumpConfig {
	configs := make([]models.DumpConfig, len(r.Configs))
	for i, c := range r.Configs {
		configs[i] = models.DumpConfig{TableName: c.TableName, ColNames: c.ColNames, Value: c.Value}
	}
	return configs
}

type diffRequest struct {
	SnapshotID1 string `json:"snapshotId1"`
	SnapshotID2 string `json:"snapshotId2"`
}
