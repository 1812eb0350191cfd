package rules

import (
	"reflect"
	"testing"

	"github.com/solatis/ensuregen/internal/types"
)

func userUnit(t *testing.T, chains ...types.ChainDecl) *types.Unit {
	t.Helper()
	return &types.Unit{
		File:    "user.yaml",
		Package: "models",
		Validators: []types.ValidatorDecl{{
			Name:   "UserValidator",
			Model:  "User",
			Chains: chains,
		}},
	}
}

func TestCompile_SimpleChain(t *testing.T) {
	unit := userUnit(t, chainDecl(t, "Name", "string",
		call("IsNotNullOrWhiteSpace"),
		call("HasMinLength", lit("2", "int")),
	))

	compiled, diags := Compile(unit, testCatalog(t), DefaultOptions())
	if len(diags) > 0 {
		t.Fatalf("Compile() diagnostics = %v, want none", diags)
	}
	if compiled.Package != "models" {
		t.Errorf("Package = %s, want models", compiled.Package)
	}
	if len(compiled.Validators) != 1 {
		t.Fatalf("len(Validators) = %d, want 1", len(compiled.Validators))
	}
	v := compiled.Validators[0]
	if v.OnFailure != types.OnFailureContinue {
		t.Errorf("OnFailure = %v, want continue as the default", v.OnFailure)
	}
	if len(v.Chains) != 1 || len(v.Chains[0].Steps) != 2 {
		t.Fatalf("chain shape = %+v, want one chain with two steps", v.Chains)
	}
	if v.RuleCount() != 2 {
		t.Errorf("RuleCount() = %d, want 2", v.RuleCount())
	}
	first := v.Chains[0].Steps[0].(*RuleStep)
	if first.Rule.Mode != ModeRich {
		t.Errorf("Mode = %v, want rich", first.Rule.Mode)
	}
}

func TestCompile_RuleCount(t *testing.T) {
	each := chainDecl(t, "Tags", "[]string")
	each.Calls = []types.Invocation{{
		Method: "ForEach",
		Each:   &types.ChainDecl{Calls: []types.Invocation{call("IsNotEmpty"), call("HasMinLength", lit("2", "int"))}},
	}}
	delegate := chainDecl(t, "Address", "*Address")
	delegate.Calls = []types.Invocation{{Method: "ValidateWith", Delegate: &types.DelegateDecl{Validator: "AddressValidator"}}}
	poly := chainDecl(t, "Shape", "Shape")
	poly.Calls = []types.Invocation{{
		Method: "Switch",
		Branches: []types.BranchDecl{
			{Type: "*Circle", Behavior: types.BehaviorDecl{Delegate: &types.DelegateDecl{Validator: "CircleValidator"}}},
			{Type: "*Square", Behavior: types.BehaviorDecl{Allow: true}},
		},
		Otherwise: &types.BehaviorDecl{Fail: "unsupported shape"},
	}}

	unit := userUnit(t, chainDecl(t, "Name", "string", call("IsNotEmpty")), each, delegate, poly)
	compiled, diags := Compile(unit, testCatalog(t), DefaultOptions())
	if len(diags) > 0 {
		t.Fatalf("Compile() diagnostics = %v, want none", diags)
	}

	counts := make([]int, 0, 4)
	for _, c := range compiled.Validators[0].Chains {
		counts = append(counts, c.RuleCount())
	}
	// rule, each(2 item rules), delegate, switch(delegate + fail; allow has no site)
	if want := []int{1, 2, 1, 2}; !reflect.DeepEqual(counts, want) {
		t.Errorf("chain RuleCount() = %v, want %v", counts, want)
	}
	if got := compiled.Validators[0].RuleCount(); got != 6 {
		t.Errorf("validator RuleCount() = %d, want 6", got)
	}

	eachStep := compiled.Validators[0].Chains[1].Steps[0].(*EachStep)
	if FormatPath(eachStep.Item.Target.Path) != "Tags[*]" || eachStep.Item.Target.Type != "string" {
		t.Errorf("item target = %s %s, want Tags[*] string", FormatPath(eachStep.Item.Target.Path), eachStep.Item.Target.Type)
	}
	sw := compiled.Validators[0].Chains[3].Steps[0].(*SwitchStep)
	if _, ok := sw.Otherwise.(FailBehavior); !ok {
		t.Errorf("Otherwise = %T, want FailBehavior", sw.Otherwise)
	}
}

func TestCompile_TwoPassEquivalence(t *testing.T) {
	isSku := types.RuleDefinition{
		Name:    "IsSku",
		Func:    "isSku",
		Params:  []types.Param{param("value", "string")},
		Message: "{TargetName} must be a SKU",
	}
	chain := func() types.ChainDecl {
		return chainDecl(t, "Sku", "string",
			call("IsNotEmpty"),
			call("IsSku"),
			call("WithErrorCode", lit(`"Sku"`, "string")),
			call("HasMinLength", lit("4", "int")),
		)
	}

	// same-unit declaration: resolved in the second pass
	local := userUnit(t, chain())
	local.Rules = []types.RuleDefinition{isSku}
	weak, diags := Compile(local, testCatalog(t), DefaultOptions())
	if len(diags) > 0 {
		t.Fatalf("Compile(local) diagnostics = %v", diags)
	}

	// the same declaration in the external catalog: resolved in the first pass
	external, _ := NewCatalog(append(testDefs(), isSku))
	rich, diags := Compile(userUnit(t, chain()), external, DefaultOptions())
	if len(diags) > 0 {
		t.Fatalf("Compile(external) diagnostics = %v", diags)
	}

	weakSteps := weak.Validators[0].Chains[0].Steps
	richSteps := rich.Validators[0].Chains[0].Steps
	if len(weakSteps) != 3 || len(richSteps) != 3 {
		t.Fatalf("step counts = %d/%d, want 3/3", len(weakSteps), len(richSteps))
	}

	wantModes := []ResolveMode{ModeRich, ModeWeak, ModeWeak}
	for i := range weakSteps {
		w := weakSteps[i].(*RuleStep).Rule
		r := richSteps[i].(*RuleStep).Rule
		if w.Mode != wantModes[i] {
			t.Errorf("step %d Mode = %v, want %v", i, w.Mode, wantModes[i])
		}
		if w.Def.Func != r.Def.Func || w.Code != r.Code || w.Message != r.Message || !reflect.DeepEqual(w.Args, r.Args) {
			t.Errorf("step %d differs between passes:\nweak: %+v\nrich: %+v", i, w, r)
		}
	}
	if !weakSteps[1].(*RuleStep).Rule.Def.Local {
		t.Error("same-unit definition not marked Local")
	}
	if weakSteps[1].(*RuleStep).Rule.Code != "Sku" {
		t.Errorf("Code = %s, want modifier override", weakSteps[1].(*RuleStep).Rule.Code)
	}
}

func TestCompile_LocalRulesAdmittedInIsolation(t *testing.T) {
	unit := userUnit(t, chainDecl(t, "Sku", "string", call("IsSku"), call("IsNotEmpty")))
	unit.Rules = []types.RuleDefinition{{Name: "IsSku", Func: "isSku"}} // no parameters

	compiled, diags := Compile(unit, testCatalog(t), DefaultOptions())
	if want := []string{types.CodeInvalidRule, types.CodeUnknownRule}; !reflect.DeepEqual(codes(diags), want) {
		t.Fatalf("Compile() codes = %v, want %v", codes(diags), want)
	}
	if diags[0].Loc.File != "user.yaml" {
		t.Errorf("local declaration location = %q, want the unit file", diags[0].Loc.File)
	}
	steps := compiled.Validators[0].Chains[0].Steps
	if len(steps) != 1 {
		t.Errorf("len(Steps) = %d, want the valid sibling kept", len(steps))
	}
}

func TestCompile_UnresolvedCallSuppressesOnlyItself(t *testing.T) {
	unit := userUnit(t, chainDecl(t, "Name", "string",
		call("IsNotEmpty"),
		call("IsPrime"),
		call("WithMessage", lit(`"never used"`, "string")),
		call("HasMinLength", lit("2", "int")),
	))
	compiled, diags := Compile(unit, testCatalog(t), DefaultOptions())
	if !reflect.DeepEqual(codes(diags), []string{types.CodeUnknownRule}) {
		t.Fatalf("Compile() codes = %v, want one ENS001", codes(diags))
	}
	if diags[0].Validator != "UserValidator" {
		t.Errorf("Validator = %q, want the owning validator", diags[0].Validator)
	}
	if got := len(compiled.Validators[0].Chains[0].Steps); got != 2 {
		t.Errorf("len(Steps) = %d, want 2", got)
	}
}

func TestCompile_LambdaOnNonPredicateRule(t *testing.T) {
	unit := userUnit(t, chainDecl(t, "Age", "int",
		call("IsNotEmpty"),
		types.Invocation{Method: "IsGreaterThan", Lambda: &types.Lambda{Param: "v", Body: "v > 0"}},
		call("IsGreaterThan", lit("0", "int")),
	))
	compiled, diags := Compile(unit, testCatalog(t), DefaultOptions())
	if !reflect.DeepEqual(codes(diags), []string{types.CodeUnknownRule}) {
		t.Fatalf("Compile() codes = %v, want one ENS001", codes(diags))
	}
	if got := len(compiled.Validators[0].Chains[0].Steps); got != 2 {
		t.Errorf("len(Steps) = %d, want 2", got)
	}
}

func TestCompile_PendingItemChainDefersLaterCalls(t *testing.T) {
	tags := chainDecl(t, "Tags", "[]string")
	tags.Calls = []types.Invocation{
		call("IsNotEmpty"),
		{Method: "ForEach", Each: &types.ChainDecl{Calls: []types.Invocation{call("IsSku")}}},
		call("IsNotEmpty"),
	}
	unit := userUnit(t, tags)
	unit.Rules = []types.RuleDefinition{{Name: "IsSku", Func: "isSku", Params: []types.Param{param("value", "string")}}}

	compiled, diags := Compile(unit, testCatalog(t), DefaultOptions())
	if len(diags) > 0 {
		t.Fatalf("Compile() diagnostics = %v, want none", diags)
	}
	steps := compiled.Validators[0].Chains[0].Steps
	if len(steps) != 3 {
		t.Fatalf("len(Steps) = %d, want 3", len(steps))
	}
	if mode := steps[0].(*RuleStep).Rule.Mode; mode != ModeRich {
		t.Errorf("first call Mode = %v, want rich", mode)
	}
	if mode := steps[2].(*RuleStep).Rule.Mode; mode != ModeWeak {
		t.Errorf("call after the item chain Mode = %v, want weak", mode)
	}
}

func TestCompile_StructuralErrors(t *testing.T) {
	unit := &types.Unit{Validators: []types.ValidatorDecl{
		{Name: "UserValidator", Model: "User"},
		{Name: "UserValidator", Model: "User"},
		{Name: "bad-name", Model: "User"},
		{Name: "OrderValidator"},
	}}
	compiled, diags := Compile(unit, testCatalog(t), DefaultOptions())
	for _, d := range diags {
		if d.Code != types.CodeStructural {
			t.Errorf("code = %s, want ENS020", d.Code)
		}
	}
	if len(diags) != 3 {
		t.Errorf("len(diags) = %d, want 3", len(diags))
	}
	if len(compiled.Validators) != 1 {
		t.Errorf("len(Validators) = %d, want only the first declaration kept", len(compiled.Validators))
	}
}

func TestCompile_ChainErrors(t *testing.T) {
	notCollection := chainDecl(t, "Name", "string")
	notCollection.Calls = []types.Invocation{{Method: "ForEach", Each: &types.ChainDecl{Calls: []types.Invocation{call("IsNotEmpty")}}}}

	dup := chainDecl(t, "Shape", "Shape")
	dup.Calls = []types.Invocation{{
		Method: "Switch",
		Branches: []types.BranchDecl{
			{Type: "*Circle", Behavior: types.BehaviorDecl{Allow: true}},
			{Type: "* Circle", Behavior: types.BehaviorDecl{Allow: true}},
		},
	}}

	delegatingOtherwise := chainDecl(t, "Shape", "Shape")
	delegatingOtherwise.Calls = []types.Invocation{{
		Method:    "Switch",
		Branches:  []types.BranchDecl{{Type: "*Circle", Behavior: types.BehaviorDecl{Allow: true}}},
		Otherwise: &types.BehaviorDecl{Delegate: &types.DelegateDecl{Validator: "ShapeValidator"}},
	}}

	wildcard := chainDecl(t, "Lines[*].Sku", "string", call("IsNotEmpty"))

	modAfterStructural := chainDecl(t, "Address", "*Address")
	modAfterStructural.Calls = []types.Invocation{
		{Method: "ValidateWith", Delegate: &types.DelegateDecl{Validator: "AddressValidator"}},
		call("WithMessage", lit(`"x"`, "string")),
	}

	tests := []struct {
		name  string
		chain types.ChainDecl
		code  string
	}{
		{"each over non-collection", notCollection, types.CodeNotCollection},
		{"duplicate branch", dup, types.CodeDuplicateBranch},
		{"otherwise delegates", delegatingOtherwise, types.CodeBadModifierArg},
		{"top-level wildcard", wildcard, types.CodePathLimit},
		{"modifier after structural call", modAfterStructural, types.CodeOrphanModifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := Compile(userUnit(t, tt.chain), testCatalog(t), DefaultOptions())
			if !hasCode(diags, tt.code) {
				t.Errorf("Compile() codes = %v, want %s", codes(diags), tt.code)
			}
		})
	}
}

func TestCompile_TooManyNestedCollections(t *testing.T) {
	// Grid [][][][][]int nested five times exceeds MaxNestedCollections
	item := &types.ChainDecl{Calls: []types.Invocation{call("IsGreaterThan", lit("0", "int"))}}
	for i := 0; i < types.MaxNestedCollections; i++ {
		item = &types.ChainDecl{Calls: []types.Invocation{{Method: "ForEach", Each: item}}}
	}
	grid := chainDecl(t, "Grid", "[][][][][]int")
	grid.Calls = []types.Invocation{{Method: "ForEach", Each: item}}

	_, diags := Compile(userUnit(t, grid), testCatalog(t), DefaultOptions())
	if !hasCode(diags, types.CodePathLimit) {
		t.Errorf("Compile() codes = %v, want ENS009", codes(diags))
	}
}

func TestCompile_AsyncDelegateInSyncValidator(t *testing.T) {
	chain := chainDecl(t, "Address", "*Address")
	chain.Calls = []types.Invocation{{Method: "ValidateWith", Delegate: &types.DelegateDecl{Validator: "AddressValidator"}}}

	unit := userUnit(t, chain)
	unit.Validators = append(unit.Validators, types.ValidatorDecl{Name: "AddressValidator", Model: "Address", Async: true})

	_, diags := Compile(unit, testCatalog(t), DefaultOptions())
	if !reflect.DeepEqual(codes(diags), []string{types.CodeAsyncInSync}) {
		t.Errorf("Compile() codes = %v, want ENS005 from the same-unit async validator", codes(diags))
	}
}

func TestCompile_DoesNotMutateInput(t *testing.T) {
	unit := userUnit(t, chainDecl(t, "Sku", "string", call("IsSku")))
	unit.Rules = []types.RuleDefinition{{Name: "IsSku", Func: "isSku", Params: []types.Param{param("v", "string")}}}

	if _, diags := Compile(unit, testCatalog(t), DefaultOptions()); len(diags) > 0 {
		t.Fatalf("Compile() diagnostics = %v", diags)
	}
	if unit.Rules[0].Local || unit.Rules[0].Loc.File != "" {
		t.Error("Compile() modified the unit's rule declarations")
	}
}
