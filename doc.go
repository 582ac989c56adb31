// Package auth provides the identity and access core for the patient portal:
// credential hashing, JWT issuance and validation, and the registration,
// login, and session workflows on top of a Bun-backed user store.
//
// Accounts:
//   - Users are keyed by the (email, provider) pair. A local account and a
//     federated account may share an email without colliding; password login
//     only ever considers local rows.
//   - New accounts default to the patient role. Roles form a simple
//     hierarchy (patient < doctor < admin) checked via RoleIsAtLeast.
//
// Tokens:
//   - TokenService issues HS256 bearer tokens that carry subject, role,
//     issuer, and audience. Tokens are self-contained, so validation never
//     touches the store; CurrentUser re-resolves the subject when the fresh
//     record matters.
//
// Federated login:
//   - The social subpackage verifies third-party identity assertions (Google
//     ID tokens) and reconciles them onto the same user store, creating the
//     account on first contact.
package auth
