// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package auth

// # JSON Field Identifiers

const (
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldLogin        = "login"
	FieldUserID       = "user_id"
	FieldRefreshToken = "refresh_token"
)
