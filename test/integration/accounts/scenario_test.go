// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package accounts_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Account lifecycle", func() {
	const password = "correct horse"

	Describe("registration and sign-in", func() {
		It("walks a user from registration to logout", func() {
			email := uniqueEmail()

			created := register("alice", email, password)
			Expect(created.status).To(Equal(http.StatusCreated))
			Expect(created.json()).To(HaveKeyWithValue("email", email))

			confirm := call(http.MethodPost, "/confirm", map[string]any{"email": email, "code": env.mail.code(email)}, "")
			Expect(confirm.status).To(Equal(http.StatusOK))
			Expect(confirm.json()).To(HaveKeyWithValue("status", "verified"))

			token := loginToken(email, password)

			profile := call(http.MethodGet, "/user", nil, token)
			Expect(profile.status).To(Equal(http.StatusOK))
			Expect(profile.json()).To(And(
				HaveKeyWithValue("email", email),
				HaveKeyWithValue("username", "alice"),
			))

			Expect(call(http.MethodPost, "/logout", nil, token).status).To(Equal(http.StatusOK))
			Expect(call(http.MethodGet, "/user", nil, token).status).To(Equal(http.StatusUnauthorized))
		})

		It("rejects a second registration for the same email", func() {
			email := uniqueEmail()
			Expect(register("first", email, password).status).To(Equal(http.StatusCreated))
			code := env.mail.code(email)

			Expect(register("second", email, "other").status).To(Equal(http.StatusConflict))

			// The original account keeps its pending code.
			Expect(call(http.MethodPost, "/confirm", map[string]any{"email": email, "code": code}, "").status).
				To(Equal(http.StatusOK))
		})

		It("refuses login before verification regardless of password", func() {
			email := uniqueEmail()
			Expect(register("bob", email, password).status).To(Equal(http.StatusCreated))

			Expect(login(email, password).status).To(Equal(http.StatusConflict))
			Expect(login(email, "wrong").status).To(Equal(http.StatusConflict))
		})

		It("refuses a wrong code and a repeated confirmation", func() {
			email := uniqueEmail()
			Expect(register("carol", email, password).status).To(Equal(http.StatusCreated))
			code := env.mail.code(email)

			wrong := code%9000 + 1000
			Expect(call(http.MethodPost, "/confirm", map[string]any{"email": email, "code": wrong}, "").status).
				To(Equal(http.StatusConflict))
			Expect(call(http.MethodPost, "/confirm", map[string]any{"email": email, "code": code}, "").status).
				To(Equal(http.StatusOK))
			Expect(call(http.MethodPost, "/confirm", map[string]any{"email": email, "code": code}, "").status).
				To(Equal(http.StatusConflict))
		})

		It("keeps a single live token per user", func() {
			email := uniqueEmail()
			verifiedUser(email, password)

			first := loginToken(email, password)
			second := loginToken(email, password)
			Expect(second).NotTo(Equal(first))

			Expect(call(http.MethodGet, "/user", nil, first).status).To(Equal(http.StatusUnauthorized))
			Expect(call(http.MethodGet, "/user", nil, second).status).To(Equal(http.StatusOK))

			var rows int
			Expect(env.pool.QueryRow(env.ctx,
				`SELECT count(*) FROM access_tokens t JOIN users u ON u.id = t.user_id WHERE u.email = $1`,
				email).Scan(&rows)).To(Succeed())
			Expect(rows).To(Equal(1))
		})

		It("rejects an expired token without deleting it", func() {
			email := uniqueEmail()
			verifiedUser(email, password)
			token := loginToken(email, password)

			_, err := env.pool.Exec(env.ctx,
				`UPDATE access_tokens SET expiration_date = now() - interval '1 minute' WHERE access_token = $1`, token)
			Expect(err).NotTo(HaveOccurred())

			Expect(call(http.MethodGet, "/user", nil, token).status).To(Equal(http.StatusUnauthorized))

			var rows int
			Expect(env.pool.QueryRow(env.ctx,
				`SELECT count(*) FROM access_tokens WHERE access_token = $1`, token).Scan(&rows)).To(Succeed())
			Expect(rows).To(Equal(1))
		})
	})

	Describe("profile management", func() {
		It("renames the signed-in user", func() {
			email := uniqueEmail()
			verifiedUser(email, password)
			token := loginToken(email, password)

			patched := call(http.MethodPatch, "/user", map[string]any{"username": "renamed"}, token)
			Expect(patched.status).To(Equal(http.StatusOK))
			Expect(patched.json()).To(HaveKeyWithValue("username", "renamed"))

			Expect(call(http.MethodGet, "/user", nil, token).json()).To(HaveKeyWithValue("username", "renamed"))
		})

		It("deletes the account and its token", func() {
			email := uniqueEmail()
			verifiedUser(email, password)
			token := loginToken(email, password)

			Expect(call(http.MethodDelete, "/user", nil, token).status).To(Equal(http.StatusOK))
			Expect(call(http.MethodGet, "/user", nil, token).status).To(Equal(http.StatusUnauthorized))
			Expect(login(email, password).status).To(Equal(http.StatusUnauthorized))
		})

		It("restricts lookups by id to administrators", func() {
			adminEmail := uniqueEmail()
			verifiedUser(adminEmail, password)
			_, err := env.pool.Exec(env.ctx, `UPDATE users SET is_admin = TRUE WHERE email = $1`, adminEmail)
			Expect(err).NotTo(HaveOccurred())
			adminToken := loginToken(adminEmail, password)

			memberEmail := uniqueEmail()
			verifiedUser(memberEmail, password)
			memberToken := loginToken(memberEmail, password)
			memberID := call(http.MethodGet, "/check-token", nil, memberToken).json()["id"]

			path := "/user/" + formatID(memberID)
			Expect(call(http.MethodGet, path, nil, memberToken).status).To(Equal(http.StatusForbidden))

			found := call(http.MethodGet, path, nil, adminToken)
			Expect(found.status).To(Equal(http.StatusOK))
			Expect(found.json()).To(HaveKeyWithValue("email", memberEmail))

			Expect(call(http.MethodGet, "/user/999999999", nil, adminToken).status).To(Equal(http.StatusNotFound))
		})
	})

	Describe("credential recovery", func() {
		It("resets a forgotten password", func() {
			email := uniqueEmail()
			verifiedUser(email, password)

			Expect(call(http.MethodPost, "/password-reset", map[string]any{"email": email}, "").status).
				To(Equal(http.StatusOK))
			reset := call(http.MethodPost, "/password-confirm", map[string]any{
				"email": email, "code": env.mail.code(email), "password": "new secret",
			}, "")
			Expect(reset.status).To(Equal(http.StatusOK))

			Expect(login(email, password).status).To(Equal(http.StatusUnauthorized))
			Expect(login(email, "new secret").status).To(Equal(http.StatusOK))
		})

		It("moves the account to a new email", func() {
			email := uniqueEmail()
			verifiedUser(email, password)
			token := loginToken(email, password)
			newEmail := uniqueEmail()

			requested := call(http.MethodPost, "/email-reset", map[string]any{"new_email": newEmail}, token)
			Expect(requested.status).To(Equal(http.StatusOK))
			Expect(requested.raw).To(ContainSubstring(newEmail))

			confirmed := call(http.MethodPost, "/email-confirm", map[string]any{
				"new_email": newEmail, "code": env.mail.code(newEmail),
			}, token)
			Expect(confirmed.status).To(Equal(http.StatusOK))
			Expect(confirmed.json()).To(HaveKeyWithValue("new_email", newEmail))

			Expect(call(http.MethodGet, "/user", nil, token).json()).To(HaveKeyWithValue("email", newEmail))
			Expect(login(newEmail, password).status).To(Equal(http.StatusOK))
		})
	})

	It("lists every account", func() {
		email := uniqueEmail()
		verifiedUser(email, password)
		token := loginToken(email, password)

		resp := call(http.MethodGet, "/list", nil, token)
		Expect(resp.status).To(Equal(http.StatusOK))
		Expect(resp.raw).To(ContainSubstring(email))
	})
})
