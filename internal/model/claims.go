package model

import "github.com/golang-jwt/jwt/v5"

type ChatTokenClaims struct {
	jwt.RegisteredClaims

	UserUID  string `json:"user_uid"`
	UserName string `json:"user_name,omitempty"`
}
