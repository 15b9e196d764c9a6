package domain

// Principal is the authenticated caller as asserted by a verified token.
type Principal struct {
	UserID    int64
	Username  string
	Email     string
	Role      Role
	CompanyID *int64
}
