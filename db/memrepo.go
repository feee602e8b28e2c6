package db

import (
	"maps"
	"sort"
	"strings"

	"lexshare/models"
)

// tables is one consistent set of the file store's maps.
type tables struct {
	profiles     map[string]models.Profile
	environments map[string]models.SharedEnvironment
	versions     map[string]models.Version
	suggestions  map[string]models.Suggestion
	reports      map[string]models.Report
	likes        map[string]models.Like
}

// clone copies every map. Records are values and their Content is never mutated
// in place, so a shallow copy of each map is enough to isolate a transaction.
func (t *tables) clone() *tables {
	return &tables{
		profiles:     maps.Clone(t.profiles),
		environments: maps.Clone(t.environments),
		versions:     maps.Clone(t.versions),
		suggestions:  maps.Clone(t.suggestions),
		reports:      maps.Clone(t.reports),
		likes:        maps.Clone(t.likes),
	}
}

// memRepo implements Repository over a tables set.
type memRepo struct {
	t        *tables
	readOnly bool
}

var _ Repository = (*memRepo)(nil)

func (r *memRepo) writable() error {
	if r.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (r *memRepo) CreateProfile(p models.Profile) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, exists := r.t.profiles[p.ID]; exists {
		return ErrDuplicate
	}
	if _, err := r.GetProfileByEmail(p.Email); err == nil {
		return ErrDuplicate
	}
	r.t.profiles[p.ID] = p
	return nil
}

func (r *memRepo) GetProfileByID(id string) (models.Profile, error) {
	p, ok := r.t.profiles[id]
	if !ok {
		return models.Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *memRepo) GetProfileByEmail(email string) (models.Profile, error) {
	for _, p := range r.t.profiles {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return models.Profile{}, ErrNotFound
}

func (r *memRepo) GetEnvironment(id string) (models.SharedEnvironment, error) {
	env, ok := r.t.environments[id]
	if !ok {
		return models.SharedEnvironment{}, ErrNotFound
	}
	return env, nil
}

func (r *memRepo) ListEnvironments() ([]models.SharedEnvironment, error) {
	out := make([]models.SharedEnvironment, 0, len(r.t.environments))
	for _, env := range r.t.environments {
		out = append(out, env)
	}
	sortEnvironmentsNewestFirst(out)
	return out, nil
}

func (r *memRepo) ListEnvironmentsByOwner(ownerID string) ([]models.SharedEnvironment, error) {
	out := []models.SharedEnvironment{}
	for _, env := range r.t.environments {
		if env.OwnerID == ownerID {
			out = append(out, env)
		}
	}
	sortEnvironmentsNewestFirst(out)
	return out, nil
}

func (r *memRepo) SaveEnvironment(env models.SharedEnvironment) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.t.environments[env.ID] = env
	return nil
}

func (r *memRepo) DeleteEnvironment(id string) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.t.environments[id]; !ok {
		return ErrNotFound
	}
	delete(r.t.environments, id)
	maps.DeleteFunc(r.t.versions, func(_ string, v models.Version) bool { return v.EnvironmentID == id })
	maps.DeleteFunc(r.t.suggestions, func(_ string, s models.Suggestion) bool { return s.EnvironmentID == id })
	maps.DeleteFunc(r.t.reports, func(_ string, rep models.Report) bool { return rep.EnvironmentID == id })
	maps.DeleteFunc(r.t.likes, func(_ string, l models.Like) bool { return l.EnvironmentID == id })
	return nil
}

func (r *memRepo) CreateVersion(v models.Version) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, exists := r.t.versions[v.ID]; exists {
		return ErrDuplicate
	}
	for _, existing := range r.t.versions {
		if existing.EnvironmentID == v.EnvironmentID && existing.Number == v.Number {
			return ErrDuplicate
		}
	}
	r.t.versions[v.ID] = v
	return nil
}

func (r *memRepo) GetVersion(id string) (models.Version, error) {
	v, ok := r.t.versions[id]
	if !ok {
		return models.Version{}, ErrNotFound
	}
	return v, nil
}

func (r *memRepo) ListVersions(environmentID string) ([]models.Version, error) {
	out := []models.Version{}
	for _, v := range r.t.versions {
		if v.EnvironmentID == environmentID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *memRepo) MarkVersionReplaced(id string) error {
	if err := r.writable(); err != nil {
		return err
	}
	v, ok := r.t.versions[id]
	if !ok {
		return ErrNotFound
	}
	v.Replaced = true
	r.t.versions[id] = v
	return nil
}

func (r *memRepo) SaveSuggestion(s models.Suggestion) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.t.suggestions[s.ID] = s
	return nil
}

func (r *memRepo) GetSuggestion(id string) (models.Suggestion, error) {
	s, ok := r.t.suggestions[id]
	if !ok {
		return models.Suggestion{}, ErrNotFound
	}
	return s, nil
}

func (r *memRepo) ListSuggestions(f SuggestionFilter) ([]models.Suggestion, error) {
	var envs map[string]bool
	if f.EnvironmentIDs != nil {
		envs = make(map[string]bool, len(f.EnvironmentIDs))
		for _, id := range f.EnvironmentIDs {
			envs[id] = true
		}
	}
	out := []models.Suggestion{}
	for _, s := range r.t.suggestions {
		if envs != nil && !envs[s.EnvironmentID] {
			continue
		}
		if f.SuggesterID != "" && s.SuggesterID != f.SuggesterID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreationDate.Equal(out[j].CreationDate) {
			return out[i].CreationDate.After(out[j].CreationDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memRepo) SaveReport(rep models.Report) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.t.reports[rep.ID] = rep
	return nil
}

func (r *memRepo) GetReport(id string) (models.Report, error) {
	rep, ok := r.t.reports[id]
	if !ok {
		return models.Report{}, ErrNotFound
	}
	return rep, nil
}

func (r *memRepo) ListReports(f ReportFilter) ([]models.Report, error) {
	out := []models.Report{}
	for _, rep := range r.t.reports {
		if f.EnvironmentID != "" && rep.EnvironmentID != f.EnvironmentID {
			continue
		}
		if f.ReporterID != "" && rep.ReporterID != f.ReporterID {
			continue
		}
		if f.Status != "" && rep.Status != f.Status {
			continue
		}
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreationDate.Equal(out[j].CreationDate) {
			return out[i].CreationDate.After(out[j].CreationDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memRepo) HasLike(userID, environmentID string) (bool, error) {
	_, ok := r.t.likes[models.LikeKey(userID, environmentID)]
	return ok, nil
}

func (r *memRepo) AddLike(l models.Like) error {
	if err := r.writable(); err != nil {
		return err
	}
	key := models.LikeKey(l.UserID, l.EnvironmentID)
	if _, exists := r.t.likes[key]; exists {
		return ErrDuplicate
	}
	r.t.likes[key] = l
	return nil
}

func (r *memRepo) RemoveLike(userID, environmentID string) error {
	if err := r.writable(); err != nil {
		return err
	}
	key := models.LikeKey(userID, environmentID)
	if _, exists := r.t.likes[key]; !exists {
		return ErrNotFound
	}
	delete(r.t.likes, key)
	return nil
}

func (r *memRepo) LikedEnvironmentIDs(userID string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, l := range r.t.likes {
		if l.UserID == userID {
			out[l.EnvironmentID] = true
		}
	}
	return out, nil
}

func sortEnvironmentsNewestFirst(envs []models.SharedEnvironment) {
	sort.Slice(envs, func(i, j int) bool {
		if !envs[i].CreationDate.Equal(envs[j].CreationDate) {
			return envs[i].CreationDate.After(envs[j].CreationDate)
		}
		return envs[i].ID > envs[j].ID
	})
}
