package models

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&User{}, &AdminUser{}, &Course{}, &Contact{},
		&Payment{}, &Purchase{}, &Order{},
		&Wallet{}, &TaskSubmission{},
	}
}
