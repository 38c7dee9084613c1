// Package token は署名付きクレームの発行と検証を提供する。
// 純粋関数的なコーデックであり、セッションやアカウントの状態は関知しない。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/kakeibo/internal/model"
)

var (
	// ErrInvalidToken は署名不一致または形式不正を表す。
	ErrInvalidToken = errors.New("token: invalid token")
	// ErrExpired はトークンの有効期限切れを表す。
	ErrExpired = errors.New("token: token expired")
)

// Claims はトークンに埋め込むクレームセット。
// Subjectにはアカウント ID を格納する。
type Claims struct {
	jwt.RegisteredClaims
	Role model.Role `json:"role"`
	Name string     `json:"name"`
}

// Codec はHS256によるトークンの署名・検証を行う。
// プロセス全体で共有するシークレットを保持するが、それ以外の状態は持たない。
type Codec struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
}

// NewCodec はCodecを生成する。
func NewCodec(secret []byte, issuer string, lifetime time.Duration) *Codec {
	return &Codec{
		secret:   secret,
		issuer:   issuer,
		lifetime: lifetime,
	}
}

// Sign はアカウント情報からクレームを構築し、署名済みトークン文字列を返す。
func (c *Codec) Sign(accountID string, role model.Role, name string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
		Role: role,
		Name: name,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークン文字列を検証し、クレームを返す。
// 発行者が一致しないトークンは署名が正しくても拒否する。
// 有効期限切れはErrExpired、署名不一致・形式不正はErrInvalidTokenを返す。
func (c *Codec) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithIssuer(c.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
