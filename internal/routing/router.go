package routing

import (
	"sort"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

// Router resolves which stakeholders receive an alert.
type Router struct {
	directory    []models.Stakeholder
	categories   map[models.RiskCategory][]models.Role
	topExecutive models.Role
	oversight    models.Role
}

type Options struct {
	Directory    []models.Stakeholder
	Categories   map[models.RiskCategory][]models.Role
	TopExecutive models.Role
	Oversight    models.Role
}

func NewRouter(opts Options) *Router {
	r := &Router{
		categories:   opts.Categories,
		topExecutive: opts.TopExecutive,
		oversight:    opts.Oversight,
	}
	if r.topExecutive == "" {
		r.topExecutive = models.RoleCEO
	}
	if r.oversight == "" {
		r.oversight = models.RoleBoard
	}
	for _, s := range opts.Directory {
		r.directory = append(r.directory, s.Clone())
	}
	return r
}

// Route returns the stakeholders for category and severity, sorted by role
// rank then name. The result is never empty while a top executive is
// configured.
func (r *Router) Route(category models.RiskCategory, severity models.Severity) []models.Stakeholder {
	selected := make(map[string]models.Stakeholder)
	key := func(s models.Stakeholder) string { return string(s.Role) + "/" + s.Name }

	for _, role := range r.categories[category] {
		for _, s := range r.byRole(role) {
			if s.Accepts(category, severity) {
				selected[key(s)] = s
			}
		}
	}

	if severity >= models.SeverityOrange {
		for _, s := range r.byRole(r.topExecutive) {
			selected[key(s)] = s
		}
	}
	if severity == models.SeverityRed {
		for _, s := range r.byRole(r.oversight) {
			selected[key(s)] = s
		}
	}

	if len(selected) == 0 {
		for _, s := range r.byRole(r.topExecutive) {
			selected[key(s)] = s
		}
	}

	out := make([]models.Stakeholder, 0, len(selected))
	for _, s := range selected {
		out = append(out, s.Clone())
	}
	sortStakeholders(out)
	return out
}

// Oversight returns the stakeholders added when an alert escalates.
func (r *Router) Oversight() []models.Stakeholder {
	out := r.byRole(r.oversight)
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

func (r *Router) byRole(role models.Role) []models.Stakeholder {
	var out []models.Stakeholder
	for _, s := range r.directory {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

func sortStakeholders(s []models.Stakeholder) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Role.Rank() != s[j].Role.Rank() {
			return s[i].Role.Rank() < s[j].Role.Rank()
		}
		return s[i].Name < s[j].Name
	})
}
