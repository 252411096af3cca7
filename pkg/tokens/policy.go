package tokens

import "context"

// AdminPolicy decides the is_admin claim for a subject at access-token issue time.
type AdminPolicy interface {
	IsAdmin(ctx context.Context, subject uint) (bool, error)
}

type AdminPolicyFunc func(ctx context.Context, subject uint) (bool, error)

func (f AdminPolicyFunc) IsAdmin(ctx context.Context, subject uint) (bool, error) {
	return f(ctx, subject)
}

type StaticAdmins map[uint]struct{}

func NewStaticAdmins(ids ...uint) StaticAdmins {
	s := make(StaticAdmins, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s StaticAdmins) IsAdmin(_ context.Context, subject uint) (bool, error) {
	_, ok := s[subject]
	return ok, nil
}

// AnyAdmin grants admin if any policy does. The first error aborts.
func AnyAdmin(policies ...AdminPolicy) AdminPolicy {
	return AdminPolicyFunc(func(ctx context.Context, subject uint) (bool, error) {
		for _, p := range policies {
			ok, err := p.IsAdmin(ctx, subject)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
}

type noAdmins struct{}

func (noAdmins) IsAdmin(context.Context, uint) (bool, error) { return false, nil }
