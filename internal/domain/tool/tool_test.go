package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sous-ai/sous/internal/infra/llm"
	"github.com/sous-ai/sous/internal/infra/metrics"
)

func newTestExecutor(t *testing.T) (*Executor, *MemStore) {
	t.Helper()
	reg := NewRegistry()
	store := NewMemStore()
	if err := RegisterBuiltins(reg, store); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	return NewExecutor(reg, metrics.Nop(), zerolog.Nop()), store
}

func call(name, args string) llm.ToolCall {
	return llm.ToolCall{ID: "call_1", Name: name, Arguments: json.RawMessage(args)}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	def := Definition{Name: "x", Handler: func(context.Context, map[string]any) (any, error) { return nil, nil }}
	if err := reg.Register(def); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := reg.Register(def); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

func TestRegistry_SchemasStableOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	store := NewMemStore()
	if err := RegisterBuiltins(reg, store); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}

	first := reg.Schemas()
	second := reg.Schemas()
	if len(first) == 0 {
		t.Fatal("no schemas registered")
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Errorf("schema order unstable at %d: %q vs %q", i, first[i].Name, second[i].Name)
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i].Name < first[i-1].Name {
			t.Errorf("schemas not sorted: %q before %q", first[i-1].Name, first[i].Name)
		}
	}
}

func TestExecute_AddThenReadPantry(t *testing.T) {
	t.Parallel()

	exec, _ := newTestExecutor(t)
	ctx := context.Background()

	res := exec.Execute(ctx, call("add_pantry_item", `{"name":"flour","quantity":2,"unit":"cup"}`))
	if !res.Success {
		t.Fatalf("add failed: %s", res.Error)
	}

	res = exec.Execute(ctx, call("read_pantry", `{}`))
	if !res.Success {
		t.Fatalf("read failed: %s", res.Error)
	}
	items := res.Data.([]PantryItem)
	if len(items) != 1 || items[0].Name != "flour" {
		t.Errorf("pantry = %+v", items)
	}
}

func TestExecute_UnknownToolIsResultNotError(t *testing.T) {
	t.Parallel()

	exec, _ := newTestExecutor(t)
	res := exec.Execute(context.Background(), call("teleport_dinner", `{}`))
	if res.Success {
		t.Error("unknown tool should not succeed")
	}
	if !strings.Contains(res.Error, "unknown tool") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestExecute_MissingRequiredArgument(t *testing.T) {
	t.Parallel()

	exec, _ := newTestExecutor(t)
	res := exec.Execute(context.Background(), call("add_pantry_item", `{"quantity":1}`))
	if res.Success {
		t.Error("missing name should fail validation")
	}
	if !strings.Contains(res.Error, `"name"`) {
		t.Errorf("error = %q", res.Error)
	}
}

func TestExecute_MalformedArguments(t *testing.T) {
	t.Parallel()

	exec, _ := newTestExecutor(t)
	res := exec.Execute(context.Background(), call("add_pantry_item", `not json at all`))
	if res.Success {
		t.Error("malformed arguments should fail")
	}
}

func TestExecute_EmptyArgumentsTolerated(t *testing.T) {
	t.Parallel()

	exec, _ := newTestExecutor(t)
	for _, raw := range []string{``, `{}`, `null`} {
		res := exec.Execute(context.Background(), call("read_pantry", raw))
		if !res.Success {
			t.Errorf("read_pantry with %q failed: %s", raw, res.Error)
		}
	}
}

func TestExecute_RemoveMissingPantryItemFails(t *testing.T) {
	t.Parallel()

	exec, _ := newTestExecutor(t)
	res := exec.Execute(context.Background(), call("remove_pantry_item", `{"name":"saffron"}`))
	if res.Success {
		t.Error("removing an absent item should report failure")
	}
}

func TestExecute_ClearMealPlanScopeDefaultsToWeek(t *testing.T) {
	t.Parallel()

	exec, store := newTestExecutor(t)
	ctx := context.Background()

	for _, args := range []string{`{}`, `{"scope":"everything maybe?"}`} {
		store.SetMealSlots(10)
		res := exec.Execute(ctx, call("clear_meal_plan", args))
		if !res.Success {
			t.Fatalf("clear failed: %s", res.Error)
		}
		data := res.Data.(map[string]any)
		if data["scope"] != ScopeWeek {
			t.Errorf("args %s: scope = %v, want week", args, data["scope"])
		}
		if data["cleared"] != 7 {
			t.Errorf("args %s: cleared = %v, want 7", args, data["cleared"])
		}
	}

	store.SetMealSlots(10)
	res := exec.Execute(ctx, call("clear_meal_plan", `{"scope":"all"}`))
	data := res.Data.(map[string]any)
	if data["cleared"] != 10 {
		t.Errorf("scope all cleared = %v, want 10", data["cleared"])
	}
}

func TestExecute_CreateGroceryItem(t *testing.T) {
	t.Parallel()

	exec, store := newTestExecutor(t)
	res := exec.Execute(context.Background(),
		call("create_grocery_item", `{"name":"milk","quantity":"2","unit":"l"}`))
	if !res.Success {
		t.Fatalf("create failed: %s", res.Error)
	}

	items := store.Groceries()
	if len(items) != 1 || items[0].Name != "milk" {
		t.Fatalf("groceries = %+v", items)
	}
	// Quantity arrived as a string; the executor coerces it.
	if items[0].Quantity != 2 {
		t.Errorf("quantity = %v, want 2", items[0].Quantity)
	}
}

func TestResult_PayloadIsJSON(t *testing.T) {
	t.Parallel()

	res := Result{CallID: "c", Name: "n", Success: true, Data: map[string]any{"k": "v"}}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(res.Payload()), &decoded); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if decoded["success"] != true {
		t.Errorf("payload = %s", res.Payload())
	}
}
