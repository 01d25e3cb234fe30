package memory

import (
	"context"
	"sort"
	"sync"

	"company-quiz-service/internal/domain"
)

// Directory is an in-memory app.Directory, seeded by the caller.
type Directory struct {
	mu        sync.RWMutex
	companies map[int64]domain.Company
	users     map[int64]domain.User
	members   map[int64]map[int64]domain.Member
}

func NewDirectory() *Directory {
	return &Directory{
		companies: make(map[int64]domain.Company),
		users:     make(map[int64]domain.User),
		members:   make(map[int64]map[int64]domain.Member),
	}
}

func (d *Directory) AddUser(u domain.User) {
	d.mu.Lock()
	d.users[u.ID] = u
	d.mu.Unlock()
}

// AddCompany registers the company and makes its owner a member.
func (d *Directory) AddCompany(c domain.Company) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.companies[c.ID] = c
	if _, ok := d.members[c.ID]; !ok {
		d.members[c.ID] = make(map[int64]domain.Member)
	}
	if c.OwnerID != 0 {
		d.members[c.ID][c.OwnerID] = domain.Member{UserID: c.OwnerID, CompanyID: c.ID}
	}
}

func (d *Directory) AddMember(m domain.Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.members[m.CompanyID]; !ok {
		d.members[m.CompanyID] = make(map[int64]domain.Member)
	}
	d.members[m.CompanyID][m.UserID] = m
}

func (d *Directory) Company(_ context.Context, companyID int64) (domain.Company, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.companies[companyID]
	if !ok {
		return domain.Company{}, domain.ErrCompanyNotFound
	}
	return c, nil
}

func (d *Directory) Companies(_ context.Context) ([]domain.Company, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Company, 0, len(d.companies))
	for _, c := range d.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *Directory) Members(_ context.Context, companyID int64) ([]domain.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.companies[companyID]; !ok {
		return nil, domain.ErrCompanyNotFound
	}
	out := make([]domain.Member, 0, len(d.members[companyID]))
	for _, m := range d.members[companyID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (d *Directory) User(_ context.Context, userID int64) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (d *Directory) Users(_ context.Context) ([]domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *Directory) MemberCompanies(_ context.Context, userID int64) ([]domain.Company, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Company, 0)
	for id, members := range d.members {
		c, known := d.companies[id]
		if _, ok := members[userID]; ok && known {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *Directory) CanManage(_ context.Context, actorID, companyID int64) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.companies[companyID]
	if !ok {
		return false, domain.ErrCompanyNotFound
	}
	if c.OwnerID == actorID {
		return true, nil
	}
	m, ok := d.members[companyID][actorID]
	return ok && m.Admin, nil
}
