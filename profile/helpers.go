package profile

import "sort"

// MainCursusLevel returns the user's level in the main cursus. The second
// return is false when the user is not enrolled in it.
func MainCursusLevel(u *User) (float64, bool) {
	if u == nil {
		return 0, false
	}
	for _, cu := range u.CursusUsers {
		if cu.CursusID == MainCursusID {
			return cu.Level, true
		}
	}
	return 0, false
}

// ProjectGroup is a top-level project attempt with its subproject attempts
// nested underneath.
type ProjectGroup struct {
	ProjectUser
	Children []ProjectUser
}

// GroupProjects returns the user's project attempts for one cursus, with
// subprojects grouped under their parent. Subprojects whose parent the user
// never registered are dropped. Groups and children are ordered most
// recently marked first, unmarked attempts last.
func GroupProjects(u *User, cursusID int) []ProjectGroup {
	if u == nil {
		return nil
	}

	var parents []ProjectGroup
	var children []ProjectUser
	for _, pu := range u.ProjectsUsers {
		if !inCursus(pu, cursusID) {
			continue
		}
		if pu.Project.ParentID == nil {
			parents = append(parents, ProjectGroup{ProjectUser: pu})
		} else {
			children = append(children, pu)
		}
	}

	byProjectID := make(map[int]*ProjectGroup, len(parents))
	for i := range parents {
		byProjectID[parents[i].Project.ID] = &parents[i]
	}
	for _, child := range children {
		parent, ok := byProjectID[*child.Project.ParentID]
		if !ok {
			continue
		}
		parent.Children = append(parent.Children, child)
	}

	sort.SliceStable(parents, func(i, j int) bool {
		return markedAfter(parents[i].ProjectUser, parents[j].ProjectUser)
	})
	for i := range parents {
		group := &parents[i]
		sort.SliceStable(group.Children, func(a, b int) bool {
			return markedAfter(group.Children[a], group.Children[b])
		})
	}
	return parents
}

func inCursus(pu ProjectUser, cursusID int) bool {
	for _, id := range pu.CursusIDs {
		if id == cursusID {
			return true
		}
	}
	return false
}

// markedAfter orders by MarkedAt descending with nil (never marked) last.
func markedAfter(a, b ProjectUser) bool {
	switch {
	case a.MarkedAt == nil:
		return false
	case b.MarkedAt == nil:
		return true
	default:
		return a.MarkedAt.After(*b.MarkedAt)
	}
}

// LatestSkills returns the skills of the cursus the user most recently
// started.
func LatestSkills(u *User) []Skill {
	if u == nil || len(u.CursusUsers) == 0 {
		return nil
	}
	latest := u.CursusUsers[0]
	for _, cu := range u.CursusUsers[1:] {
		if cu.BeginAt.After(latest.BeginAt) {
			latest = cu
		}
	}
	return latest.Skills
}

var tierOrder = map[string]int{
	"hard":   0,
	"medium": 1,
	"easy":   2,
}

// SortAchievements orders achievements hardest tier first, then by name.
func SortAchievements(achievements []Achievement) {
	sort.SliceStable(achievements, func(i, j int) bool {
		ti, tj := tierRank(achievements[i].Tier), tierRank(achievements[j].Tier)
		if ti != tj {
			return ti < tj
		}
		return achievements[i].Name < achievements[j].Name
	})
}

func tierRank(tier string) int {
	if rank, ok := tierOrder[tier]; ok {
		return rank
	}
	return len(tierOrder)
}
