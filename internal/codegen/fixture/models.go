// Package fixture holds models and their checked-in generated validators.
// user_ensure.go must match what the assembler renders for the manifest in
// internal/codegen/e2e_test.go; regenerate it with go test -run TestGolden -update.
package fixture

type User struct {
	Name  string
	Tags  []string
	Shape Shape
}

type Shape interface{ shape() }

type Circle struct{ Radius float64 }

type Square struct{ Side float64 }

func (*Circle) shape() {}
func (*Square) shape() {}

type UserValidator struct{}

type StrictUserValidator struct{}

type CircleValidator struct{}
