package profile

import "time"

// Cursus ids as assigned by the provider.
const (
	MainCursusID    = 21
	PiscineCursusID = 9
)

// User is the provider's profile payload, reduced to the fields the client
// displays. Unknown fields are ignored on decode.
type User struct {
	ID              int           `json:"id"`
	Login           string        `json:"login"`
	DisplayName     string        `json:"displayname"`
	Email           string        `json:"email"`
	Location        *string       `json:"location"`
	Wallet          int           `json:"wallet"`
	CorrectionPoint int           `json:"correction_point"`
	Image           Image         `json:"image"`
	CursusUsers     []CursusUser  `json:"cursus_users"`
	ProjectsUsers   []ProjectUser `json:"projects_users"`
	Achievements    []Achievement `json:"achievements"`
}

type Image struct {
	Link string `json:"link"`
}

// CursusUser is the user's enrollment in one cursus.
type CursusUser struct {
	CursusID int        `json:"cursus_id"`
	Level    float64    `json:"level"`
	Grade    *string    `json:"grade"`
	BeginAt  time.Time  `json:"begin_at"`
	EndAt    *time.Time `json:"end_at"`
	Skills   []Skill    `json:"skills"`
}

type Skill struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Level float64 `json:"level"`
}

// ProjectUser is the user's attempt at one project. Subprojects reference
// their parent via Project.ParentID.
type ProjectUser struct {
	ID        int        `json:"id"`
	FinalMark *int       `json:"final_mark"`
	Status    string     `json:"status"`
	Validated *bool      `json:"validated?"`
	MarkedAt  *time.Time `json:"marked_at"`
	CursusIDs []int      `json:"cursus_ids"`
	Project   ProjectRef `json:"project"`
}

type ProjectRef struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ParentID *int   `json:"parent_id"`
}

type Achievement struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tier        string `json:"tier"`
	Kind        string `json:"kind"`
}
