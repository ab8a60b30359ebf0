// Command hashpw prints the bcrypt hash of a password for use as
// ADMIN_PASSWORD_HASH.
//
// Usage:
//
//	hashpw
//
// The password is prompted for twice without echo. When stdin is not a
// terminal the first two lines of input are used, so the tool can be
// scripted:
//
//	printf 'secret\nsecret\n' | hashpw
package main
