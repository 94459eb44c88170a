package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RulePack carries everything family-specific: the prompt text for both
// extraction runs and the validator, and which merge key the family uses.
// The orchestration in extract.go is identical for every family; only the
// pack contents differ.
type RulePack struct {
	Family      string `yaml:"family"`
	Description string `yaml:"description"`

	// KeyKind selects the merge identity: "name" or "composite".
	KeyKind string `yaml:"key_kind"`

	RunASystem   string `yaml:"run_a_system"`
	RunAExamples string `yaml:"run_a_examples"`

	ExplainSystem string `yaml:"explain_system"`

	RunBSystem   string `yaml:"run_b_system"`
	RunBExamples string `yaml:"run_b_examples"`

	ValidatorSystem   string `yaml:"validator_system"`
	ValidatorExamples string `yaml:"validator_examples"`
}

// Validate checks the fields a pack cannot function without.
func (p *RulePack) Validate() error {
	if strings.TrimSpace(p.Family) == "" {
		return fmt.Errorf("rule pack: family is required")
	}
	if p.KeyKind != "name" && p.KeyKind != "composite" {
		return fmt.Errorf("rule pack %q: key_kind must be \"name\" or \"composite\", got %q", p.Family, p.KeyKind)
	}
	if strings.TrimSpace(p.RunASystem) == "" {
		return fmt.Errorf("rule pack %q: run_a_system is required", p.Family)
	}
	if strings.TrimSpace(p.RunBSystem) == "" {
		return fmt.Errorf("rule pack %q: run_b_system is required", p.Family)
	}
	if strings.TrimSpace(p.ValidatorSystem) == "" {
		return fmt.Errorf("rule pack %q: validator_system is required", p.Family)
	}
	return nil
}

// defaultExplainSystem is the paraphrase prompt shared by packs that do not
// override it. One factual sentence per original source line, identifiers
// intact, so the run-B extraction can anchor on the same line numbers.
const defaultExplainSystem = `Convert the Java code into concise, factual natural language, one sentence per source line (1-based).
Keep identifiers (variable names, method names, receivers) intact. No speculation. No added or removed lines.
Return STRICT JSON: {"lines":[{"line":int,"text":str},...]}.`

// ecShape documents the candidate schema inside prompt text.
const ecShape = `{"name":"...","code_snippet":"...","code_block":"...","further_expand":false,"confidence":0.0,"conditioned":false,"guards":[],"comment":null}`

// BuiltinPacks returns the compiled-in rule packs, one per extractor family,
// keyed by family name. Callers own the map.
func BuiltinPacks() map[string]*RulePack {
	packs := []*RulePack{
		methodCallPack(),
		methodDefinitionPack(),
		objectInstantiationPack(),
		localVariableDeclarationPack(),
		argumentPack(),
		fieldAccessPack(),
		staticFactoryPack(),
		chainedCallPack(),
		callOnObjectPack(),
		lambdaPack(),
	}
	out := make(map[string]*RulePack, len(packs))
	for _, p := range packs {
		out[p.Family] = p
	}
	return out
}

// Families returns the family names of a pack set, sorted.
func Families(packs map[string]*RulePack) []string {
	names := make([]string, 0, len(packs))
	for name := range packs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadPacks reads yaml rule packs from dir and overlays them on the builtin
// set. A file defines one pack; its family name decides whether it replaces
// a builtin or adds a new family. Missing dir is not an error.
func LoadPacks(dir string) (map[string]*RulePack, error) {
	packs := BuiltinPacks()
	if dir == "" {
		return packs, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return packs, nil
		}
		return nil, fmt.Errorf("read rules dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rule pack %s: %w", path, err)
		}
		var pack RulePack
		if err := yaml.Unmarshal(data, &pack); err != nil {
			return nil, fmt.Errorf("parse rule pack %s: %w", path, err)
		}
		if pack.ExplainSystem == "" {
			pack.ExplainSystem = defaultExplainSystem
		}
		if err := pack.Validate(); err != nil {
			return nil, fmt.Errorf("rule pack %s: %w", path, err)
		}
		packs[pack.Family] = &pack
	}
	return packs, nil
}

func methodCallPack() *RulePack {
	return &RulePack{
		Family:      "method_call",
		Description: "One-hop method calls adjacent to the focus occurrence",
		KeyKind:     "name",
		RunASystem: `Task: Extract method calls directly linked to the focus (one-hop adjacency), using ONLY the original Java code.
Return STRICT JSON. Prefer empty results over guesses.

How to interpret the focus name (infer from the anchor line and context):
- If it is a METHOD: return only direct UNQUALIFIED calls inside that method's body
  (e.g. helper(), this.helper(), super.helper()).
- If it is a VARIABLE: return only one-hop calls where RECEIVER == that variable name
  (e.g. obj.doIt(...)). Do NOT include the next chained hop.
- If it is a CALL RESULT (the named method appears as a callee at the anchor):
  return only the IMMEDIATE next chained call (e.g. x.a().b() -> from a return b).

Mandatory exclusions:
- Do NOT return calls on other receivers, deeper chain hops, or calls inside lambda/anonymous-class bodies.
- Ignore logging/printing and trivial JDK utilities (denylist provided).
- If nothing qualifies, return children=[].

For each kept child, include: name, code_snippet (exact fragment), code_block (smallest original block showing parent+child+relation),
confidence [0,1], optional conditioned/guards and a short comment (at most 12 words).
Output JSON schema: {"children":[` + ecShape + `]}`,
		RunAExamples: `Few-shot examples (diverse):

1) Method focus (unqualified only)
class S { void work(){ init(); worker.run(); client.fetch().map(x -> x.id()); this.flush(); } void init(){} void flush(){} }
focus_name="work" -> children = ["init","flush"]

2) Object focus with chain
void m(){ Processor p=new Processor(); p.stage().commit(); p.reset(); other.tick(); }
focus_name="p" -> children=["stage","reset"]   (not "commit", not "tick")

3) Aliasing excludes deeper hops
void m(){ R r = user.profile(); r.update(); }
focus_name="user" -> children=["profile"]       (not "update")

4) Lambda body excluded
void m(){ items.forEach(it -> it.process()); }
focus_name="items" -> children=["forEach"]      (not "process")

5) Call-result next hop
void m(){ db.connect().query().close(); }
focus_name="connect" -> children=["query"]
focus_name="query"   -> children=["close"]

6) Cast allowed; ternary receiver not allowed
void m(){ ((Writer) out).write(s); (cond ? out : alt).flush(); }
focus_name="out" -> children=["write"]          (exclude flush under ternary receiver)`,
		ExplainSystem: defaultExplainSystem,
		RunBSystem: `Task: Using the natural-language per-line explanations, extract method calls directly linked to the focus.
Apply the SAME one-hop rules as in the original-code run (UNQUALIFIED for method focus; RECEIVER==focus for variable focus; next chained hop for call-result focus).
Anchor at the given line; prefer the occurrence nearest to that line within the same enclosing method/initializer.
Return STRICT JSON: {"children":[` + ecShape + `]}. Prefer empty over guesses.`,
		RunBExamples: `Few-shots in NL form:

A) "5: call init() with no receiver; then worker.run()" -> method focus="work" -> ["init"]
B) "7: variable p calls stage(); chained .commit()"     -> object focus="p"   -> ["stage"]
C) "11: db.connect() then chained .query()"             -> call-result focus="connect" -> ["query"]`,
		ValidatorSystem: `You are a strict validator for method-call relationships. Return STRICT JSON only.
Decide, for each candidate child, whether it is a VALID immediate method-call child of the focus at the anchored occurrence.

Focus kinds (infer from anchor line and context):
- METHOD focus -> only direct UNQUALIFIED calls inside that method body (helper(), this.helper(), super.helper()).
- OBJECT focus -> only one-hop calls where RECEIVER == focus name (obj.doIt(...)). Do NOT include the next chained hop.
- CALL-RESULT focus -> only the IMMEDIATE next chained call after the named call (x.a().b() -> child "b" for focus "a").

Mandatory exclusions:
- Calls on other receivers, deeper chain hops, anything inside lambda/anonymous-class bodies.
- Logging/printing and trivial JDK utilities (denylist if provided).
- Cross-file or other methods' bodies are out of scope.

For each candidate, return: name, valid (bool), confidence [0,1], reason (short).
Return STRICT JSON: {"verdicts":[{"name":"...","valid":bool,"confidence":0.0,"reason":"..."}]}.
Prefer EMPTY verdicts over guesses when unsure.`,
		ValidatorExamples: `Few-shot examples (generic):

1) METHOD focus
class S { void work(){ init(); worker.run(); this.flush(); } void init(){} void flush(){} }
focus="work"; candidates=["init","flush","run"]
-> valid: init=true, flush=true, run=false (run is on receiver "worker")`,
	}
}

func methodDefinitionPack() *RulePack {
	return &RulePack{
		Family:      "method_definition",
		Description: "Same-class definition lookup with external-expansion instruction",
		KeyKind:     "name",
		RunASystem: `Task: Given a METHOD NAME as the focus, decide whether it is defined in the SAME CLASS in the provided code,
and then extract method-call children accordingly. Return STRICT JSON. Prefer empty results over guesses.

MODE DECISION:
- SAME_CLASS if there is a method declaration with that exact name in this code (same class/compilation unit).
- EXTERNAL if no such declaration exists here (the name appears only at call sites/imports/other classes).

EXTRACTION (only when SAME_CLASS):
- Return only direct UNQUALIFIED calls inside that method body (helper(), this.helper(), super.helper()).
- Exclude: calls on other receivers (svc.run()), deeper chain hops (x.a().b()), and calls inside lambda/anonymous-class bodies.
- Ignore logging/printing and trivial JDK utilities (denylist provided).

EXTERNAL HANDLING:
- Return ONE instruction-child telling the orchestrator to expand the method definition in its declaring class:
  name = the method name, code_snippet = the ANCHOR_LINE_CONTENT,
  code_block = the nearest full statement containing the anchor (or the snippet itself),
  further_expand = true.
- No other children are needed in EXTERNAL mode.

All children include: name, code_snippet, code_block, confidence [0,1], optional conditioned/guards and a short comment (at most 12 words).
Output JSON schema: {"children":[` + ecShape + `]}`,
		RunAExamples: `Few-shot examples (generic):

1) SAME_CLASS
class U {
  void boot(){ prep(); worker.run(); this.flush(); }
  void prep(){} void flush(){}
}
focus_name="boot"
Output: children = ["prep","flush"] (unqualified only)

2) EXTERNAL (no definition here)
class V {
  void main(){ engine.start(); }
}
focus_name="start"
Output: one child with name="start", further_expand=true,
code_snippet showing "engine.start(...)" or the anchor line content`,
		ExplainSystem: defaultExplainSystem,
		RunBSystem: `Using the per-line explanations, repeat the SAME task:
- Decide SAME_CLASS vs EXTERNAL for the given method name.
- If SAME_CLASS: list direct UNQUALIFIED calls inside that method body.
- If EXTERNAL: produce the single instruction-child with further_expand=true, using the ANCHOR_LINE_CONTENT as the snippet.
Respect the denylist. Prefer empty over guessing.
Return STRICT JSON: {"children":[` + ecShape + `]}.`,
		ValidatorSystem: `You validate relationships for a METHOD-NAME focus with respect to its definition.
Return STRICT JSON only.

Decide MODE:
- SAME_CLASS if this code contains a method declaration with that exact name in the same class/compilation unit.
- EXTERNAL if no such declaration exists here (the method is referenced but defined elsewhere).

Validation rules:
- SAME_CLASS -> children must be direct UNQUALIFIED calls inside that method body (helper(), this.helper(), super.helper()).
- EXTERNAL  -> exactly ONE instruction-child is expected with further_expand=true, pointing the orchestrator to expand at the defining class.
  Its name is the method name and its code_snippet/code_block should reflect the anchor line content/call site.

Exclude calls on other receivers, deeper chain hops, lambda/anonymous-class internals, and trivial utilities.

For each candidate, return name, valid (bool), confidence [0,1], reason.
Return STRICT JSON: {"verdicts":[{"name":"...","valid":bool,"confidence":0.0,"reason":"..."}]}.`,
	}
}

func objectInstantiationPack() *RulePack {
	return &RulePack{
		Family:      "object_instantiation",
		Description: "new-expressions near the focus; may emit TYPE and VARIABLE pairs",
		KeyKind:     "composite",
		RunASystem: `Task: Extract OBJECT INSTANTIATIONS directly related to the FOCUS, using ONLY the original Java code.
Return STRICT JSON. Prefer empty results over guesses.

Interpret the focus and apply relevance:
- FOCUS = METHOD -> include instantiations inside that method body:
  "Type v = new Type(...);"  -> child TYPE "Type".
  If "v" is later used as an object (receiver or argument) in the same method, ALSO add child VARIABLE "v".
  "call(new Type(...))" or "sink.accept(new Type(...))" -> add ONLY child TYPE "Type" for that line.
  "new Type(...).init()" (no variable bound) -> add ONLY child TYPE "Type".
- FOCUS = OBJECT VARIABLE X -> include instantiations that create or directly affect X:
  "XType X = new XType(...);" -> child TYPE "XType" (do NOT add a child for "X" here; X is the focus itself).
  "X.field = new Type(...);" -> child TYPE "Type" (instantiation stored into a field of the focus).
  "call(new Type(X))" (focus passed into constructor) -> add ONLY child TYPE "Type".
- FOCUS = CALL_RESULT -> usually no direct instantiation; include only if the same statement builds the call result via "new".

Mandatory exclusions:
- Do NOT include instantiations that occur only inside lambda/anonymous-class bodies.
- Do NOT include denylisted trivial/logging utilities.
- Prefer the occurrence nearest to ANCHOR_LINE within the same enclosing method/initializer.

For each kept item, use the ENTIRE instantiation line as code_snippet.
When emitting a TYPE/VARIABLE pair from the same line, give them the same code_snippet and distinct variant numbers (0, 1).
Output JSON schema: {"children":[` + ecShape + `]} (each child may also carry "variant":int).`,
		ExplainSystem: `Convert the Java code to concise, factual natural language, ONE sentence per original line (1-based).
Preserve identifiers and "new Type(...)" constructs; indicate variable names and whether the line is a call, assignment, or declaration.
No speculation. No added/removed lines.
Return STRICT JSON: {"lines":[{"line":int,"text":str},...]}.`,
		RunBSystem: `Using the per-line explanations, extract OBJECT INSTANTIATIONS directly related to the focus, with the same rules as in the original-code run.
Apply the special rule:
- If a variable is bound to "new" AND the variable is later used as an object in the same method, emit TWO children: the TYPE and the VARIABLE (both with the ENTIRE instantiation line as code_snippet).
- If the instantiation is used only as an argument or in a chained call with no variable bound, emit ONLY the TYPE child.

Return STRICT JSON: {"children":[` + ecShape + `]}.
Prefer empty results over guesses.`,
		RunBExamples: `Few-shot hints in NL:

- "line 10: declare Foo f = new Foo(a)" and later "line 12: f.run()" -> emit "Foo" and "f" (same instantiation line as snippet)
- "line 7: call(new Bar())" -> emit "Bar" only
- "line 5: new Baz().init()" -> emit "Baz" only
- "line 18: x.helper = new Helper()" with focus x -> emit "Helper"`,
		ValidatorSystem: `You validate Object Instantiation candidates relative to the FOCUS.
Return STRICT JSON.

Validity rules:
- METHOD focus:
  Valid TYPE if the method body contains a "new Type(...)" instantiation (outside lambda/anonymous classes).
  Valid VARIABLE if it is declared on the same line as "new Type(...)" AND that variable is later used as an object
  (receiver or argument) within the same method. The ENTIRE instantiation line is the code_snippet for both.
  If an instantiation is used only as an argument or chained immediately (no variable bound), ONLY the TYPE is valid.
- OBJECT VARIABLE focus:
  Valid TYPE if it constructs the focus (e.g. "X x = new X(...)") or assigns a new into a field of the focus (e.g. "x.f = new Y(...)").
  Do NOT validate a separate VARIABLE child for the focus variable itself.
- CALL_RESULT focus:
  Valid TYPE only if the call result is directly created via "new" in the same statement; otherwise invalid.

Exclusions:
- Ignore instantiations inside lambda/anonymous-class bodies.
- Ignore denylisted trivial/logging utilities.

For each candidate, output {"name","valid":bool,"confidence":0.0-1.0,"reason":str}.
Return STRICT JSON: {"verdicts":[...]}. Prefer empty over guesses.`,
		ValidatorExamples: `Few-shot examples:

1) Method focus; var later used
void m(){ Foo f = new Foo(); f.run(); }
Candidates: ["Foo","f"] -> both valid (same instantiation line as snippet)

2) Method focus; arg-only
void m(){ call(new Bar()); }
Candidates: ["Bar","temp"] -> "Bar" valid; "temp" invalid (no variable bound)

3) Method focus; chained after new
void m(){ new Baz().init(); }
Candidates: ["Baz","x"] -> "Baz" valid; "x" invalid`,
	}
}

func localVariableDeclarationPack() *RulePack {
	return &RulePack{
		Family:      "local_variable_declaration",
		Description: "Local declarations tied to the focus (aliases, captured results)",
		KeyKind:     "composite",
		RunASystem: `Task: Extract LOCAL VARIABLE DECLARATIONS directly related to the focus.
Return STRICT JSON. Prefer empty results over guesses.

Rules:
- Focus=METHOD: include locals declared in the method body (not fields); exclude lambda/anonymous-class internals.
- Focus=OBJECT VARIABLE X: include locals that are directly assigned from X or produce aliases of X (e.g. R r = X.a(); var t = X;).
- Focus=CALL_RESULT: include locals that capture that call result in the same statement.
- Exclude fields, parameters, and denylisted utilities. Prefer nearest to ANCHOR_LINE within the same method/initializer.

Use the ENTIRE declaration line as code_snippet.
Output JSON schema: {"children":[` + ecShape + `]}`,
		ExplainSystem: `Convert Java to concise, factual NL, one sentence per line (1-based). Preserve identifiers and declarations.
Return STRICT JSON: {"lines":[{"line":int,"text":str},...]}.`,
		RunBSystem: `Using the NL lines, extract LOCAL VARIABLE DECLARATIONS per the same rules.
Return STRICT JSON: {"children":[` + ecShape + `]}.`,
		ValidatorSystem: `Validate LOCAL VARIABLE DECLARATION candidates relative to focus.
Rules:
- METHOD: name must be declared as a local inside that method body (not field/param).
- OBJECT VARIABLE X: valid if local is assigned from X or aliases X (R r = X.a(); var t = X;).
- CALL_RESULT: valid if local captures that call result on the same statement.
Exclude lambda/anonymous-class internals.
Return STRICT JSON: {"verdicts":[{"name":"...","valid":bool,"confidence":0.0,"reason":"..."}]}.`,
	}
}

func argumentPack() *RulePack {
	return &RulePack{
		Family:      "argument",
		Description: "Atomic components inside argument expressions consuming the focus",
		KeyKind:     "name",
		RunASystem: `Task: Extract ALL ATOMIC COMPONENTS mentioned inside ARGUMENT EXPRESSIONS at call sites
that consume the FOCUS OBJECT anywhere within that argument expression.
Return STRICT JSON. Prefer empty results over guesses.

What counts as an atomic component:
- Identifiers (variables or class/simple names), e.g. a, Foo
- Member names in dotted or method-ref forms, e.g. in a.b, a.b(), a::b -> emit both "a" and "b"
- Method names as part of argument expressions, e.g. sink.accept(a.b()) -> also emit "b"
- Constructor references -> emit both "Foo" and "new" for Foo::new
- Casts -> emit both the type and the variable, e.g. (Foo)obj -> "Foo" and "obj"

In-scope occurrences:
- A METHOD CALL whose argument list contains an expression where the FOCUS OBJECT appears (possibly nested).
- The focus may be the whole argument (obj), or part of a larger expression (a.b, a.b(), a::b, (Foo)obj, Foo.bar(obj)).
- Prefer the occurrence nearest to the ANCHOR_LINE within the same enclosing method/initializer.

Mandatory exclusions:
- Do NOT extract items that occur only inside lambda/anonymous-class bodies.
- Do NOT extract from denylisted trivial/logging utilities (denylist provided).
- Do NOT treat receiver calls (obj.m()) as arguments (that is a different relationship).

For each kept argument site, SPLIT the expression and emit one child per atomic component,
with code_snippet set to the argument/call fragment and code_block to the smallest block showing the call and the argument.
Output JSON schema: {"children":[` + ecShape + `]}`,
		ExplainSystem: `Convert the Java code to concise, factual natural language, ONE sentence per original line (1-based).
Preserve identifiers, receivers, and argument lists. No speculation. No added/removed lines.
Return STRICT JSON: {"lines":[{"line":int,"text":str},...]}.`,
		RunBSystem: `Using the per-line explanations, extract ALL ATOMIC COMPONENTS inside argument expressions that consume the FOCUS OBJECT.
Apply the SAME rules as the original-code run; split dotted expressions, method calls, method references, casts, and static calls.
Anchor at the given line; prefer the nearest occurrence in the same method/initializer.
Return STRICT JSON: {"children":[` + ecShape + `]}. Prefer empty results over guesses.`,
		RunBExamples: `Few-shot hints in NL form:

- "line 8: call sink.accept(a.b)" -> components ["a","b"]
- "line 12: call process with (cond ? a.b : other)" -> components ["a","b"], conditioned=true, guards=["cond"]
- "line 20: pass Foo::new" -> components ["Foo","new"]`,
		ValidatorSystem: `You validate argument COMPONENT candidates:
Each candidate name must be one of the ATOMIC COMPONENTS present inside an argument expression
at a call site where the FOCUS OBJECT appears somewhere within that argument expression.
Return STRICT JSON.

Valid components include:
- Identifiers (variables or class/simple names)
- Member names in dotted/method-call forms (a.b, a.b())
- Method references (a::b, Foo::new) -> both sides are valid components
- Casts ((Foo)obj) -> both "Foo" and "obj"
- Static method calls used as arguments (Foo.bar(obj)) -> "Foo", "bar", and "obj" are components

Invalid if:
- The focus object does NOT actually occur in that argument expression at the site.
- The component appears only inside a lambda/anonymous-class body.
- The only use is as a receiver (obj.m()) rather than an argument.
- The call is a denylisted trivial/logging utility.

Return STRICT JSON: {"verdicts":[{"name":"...","valid":bool,"confidence":0.0,"reason":"..."}]}.
Prefer empty over guesses.`,
		ValidatorExamples: `Few-shot examples (generic):

1) sink.accept(a.b)  with focus=a  -> valid: "a", "b"
2) sink.accept(a.b()) with focus=a -> valid: "a", "b"
3) list.forEach(a::c) with focus=a -> valid: "a","c" (method reference)
4) use((Foo)obj) with focus=obj   -> valid: "Foo","obj"
5) call(Foo.bar(obj)) with focus=obj -> valid: "Foo","bar","obj"
6) obj.doIt()           -> invalid (receiver call, not an argument)
7) inside lambda only   -> invalid`,
	}
}

func fieldAccessPack() *RulePack {
	return &RulePack{
		Family:      "field_access",
		Description: "One-hop field reads/writes on the focus",
		KeyKind:     "name",
		RunASystem: `Task: Extract FIELD ACCESSES directly related to the focus. Return STRICT JSON.

Rules:
- Focus=METHOD: include reads/writes of "this" fields (implicit or explicit this/super) inside the method body.
- Focus=OBJECT VARIABLE X: include one-hop field reads/writes where receiver == X (e.g. X.f, X.f = v).
- Focus=CALL_RESULT: include field access on the immediate call result in the same statement (rare).
- Exclude: deeper chains (X.f.g), lambda/anonymous-class internals, denylisted utilities. Prefer nearest to ANCHOR_LINE.

Emit one child per field name.
Output JSON schema: {"children":[` + ecShape + `]}`,
		ExplainSystem: `Convert Java to concise NL, one sentence per line (1-based), preserving field reads/writes.
Return STRICT JSON: {"lines":[{"line":int,"text":str},...]}.`,
		RunBSystem: `Using the NL lines, extract FIELD ACCESSES per the same rules.
Return STRICT JSON: {"children":[` + ecShape + `]}.`,
		ValidatorSystem: `Validate FIELD ACCESS candidates relative to focus.
- METHOD: "this" (implicit/explicit) field reads/writes only.
- OBJECT VARIABLE X: one-hop field on X (X.f or X.f = ...).
- CALL_RESULT: field on the immediate result in the same statement only.
Exclude lambda internals, deeper chains, denylisted utilities.
Return STRICT JSON: {"verdicts":[{"name":"...","valid":bool,"confidence":0.0,"reason":"..."}]}.`,
	}
}

func staticFactoryPack() *RulePack {
	return &RulePack{
		Family:      "static_factory",
		Description: "Object-producing static calls tied to the focus",
		KeyKind:     "name",
		RunASystem: `Task: Extract STATIC FACTORY CALLS directly related to the focus. Return STRICT JSON.

Rules:
- A static factory call is a static method invocation that returns/produces an object (e.g. Type.of(...), Files.readString(...)).
- Focus=METHOD: include static factory calls inside the method body.
- Focus=OBJECT VARIABLE X: include static factory calls that consume X as an argument or that immediately initialize a variable later used with X.
- Focus=CALL_RESULT: include static factory calls that immediately feed into the focused chain at the same statement.

Exclusions:
- Logging/trivial utilities; lambda/anonymous-class internals. Prefer nearest to ANCHOR_LINE.

Emit one child per call, name = the static method's simple name.
Output JSON schema: {"children":[` + ecShape + `]}`,
		ExplainSystem: `Convert Java to concise NL, one sentence per line (1-based), preserving static calls (Class.method).
Return STRICT JSON: {"lines":[{"line":int,"text":str},...]}.`,
		RunBSystem: `Using the NL lines, extract STATIC FACTORY CALLS per the same rules.
Return STRICT JSON: {"children":[` + ecShape + `]}.`,
		ValidatorSystem: `Validate STATIC FACTORY CALL candidates relative to focus.
Valid if the code shows a static call (Class.method(...)) that is object-producing and is either in the method body (method focus),
consumes the focus object as an argument (object focus), or directly feeds the focused chain (call-result focus).
Exclude denylisted utilities and lambda internals.
Return STRICT JSON: {"verdicts":[{"name":"...","valid":bool,"confidence":0.0,"reason":"..."}]}.`,
	}
}

func chainedCallPack() *RulePack {
	return &RulePack{
		Family:      "chained_call",
		Description: "Immediate next hop chained off a call-result focus",
		KeyKind:     "name",
		RunASystem: `Task: Extract the IMMEDIATE NEXT CHAINED CALL(S) for the call-result focus.
Return STRICT JSON.

Rules:
- Focus is the previous call name (e.g. "a" in x.a().b().c()).
- Return only the next hop(s) directly chained from that call site: for focus="a" -> "b"; for focus="b" -> "c".
- Exclude unqualified calls, calls on different receivers, deeper hops, lambda internals, denylisted utilities.
- Prefer the occurrence nearest to ANCHOR_LINE within the same method/initializer.

Emit one child per next hop, code_snippet = the chain fragment.
Output JSON schema: {"children":[` + ecShape + `]}`,
		ExplainSystem: `Convert Java to concise NL, one sentence per line (1-based), showing chained calls step-by-step.
Return STRICT JSON: {"lines":[{"line":int,"text":str},...]}.`,
		RunBSystem: `Using the NL lines, extract immediate NEXT CHAINED CALLS per the same rules.
Return STRICT JSON: {"children":[` + ecShape + `]}.`,
		ValidatorSystem: `Validate NEXT CHAINED CALL candidates. Valid iff each candidate is the immediate next hop chained off the focus call
at/near the anchor line in the same method. Exclude deeper hops, other receivers, lambda internals.
Return STRICT JSON: {"verdicts":[{"name":"...","valid":bool,"confidence":0.0,"reason":"..."}]}.`,
	}
}

func callOnObjectPack() *RulePack {
	return &RulePack{
		Family:      "call_on_object",
		Description: "One-hop calls with the focus variable as receiver",
		KeyKind:     "name",
		RunASystem: `Task: Extract ONE-HOP CALLS on the FOCUS OBJECT. Return STRICT JSON.

Rules:
- Include calls where receiver == focus variable: focus.m(...). Do NOT include the next hop in chains.
- Cast OK: ((Type)focus).m(). Ternary receiver NOT OK: (cond ? focus : other).m() -> exclude.
- Exclude unqualified calls, calls on other receivers, lambda/anonymous-class internals, denylisted utilities.
- Prefer nearest to ANCHOR_LINE within the same method/initializer.

Emit one child per call, code_snippet = the exact call fragment.
Output JSON schema: {"children":[` + ecShape + `]}`,
		ExplainSystem: `Convert Java to concise NL, one sentence per line (1-based), preserving receivers and chained calls.
Return STRICT JSON: {"lines":[{"line":int,"text":str},...]}.`,
		RunBSystem: `Using the NL lines, extract ONE-HOP CALLS on the focus per the same rules.
Return STRICT JSON: {"children":[` + ecShape + `]}.`,
		ValidatorSystem: `Validate ONE-HOP CALL candidates on the focus object.
Valid if the code shows <focus>.<method>(...) at/near the anchor within the same method; exclude next hops, ternary receivers, other receivers,
lambda internals, denylisted utilities.
Return STRICT JSON: {"verdicts":[{"name":"...","valid":bool,"confidence":0.0,"reason":"..."}]}.`,
	}
}

func lambdaPack() *RulePack {
	return &RulePack{
		Family:      "lambda",
		Description: "Lambda/method-reference values passed near the focus",
		KeyKind:     "name",
		RunASystem: `Task: Extract LAMBDA EXPRESSION values directly related to the focus (names-only representation).
Return STRICT JSON.

Rules:
- Focus=METHOD: include lambda/method-reference VALUES created/passed at top level in the method body,
  e.g. items.anyMatch(x -> p(x)), list.forEach(this::tick). Do NOT expose calls INSIDE lambda bodies.
- Focus=OBJECT VARIABLE X: include lambda values where X is the receiver of the terminal op that accepts the lambda,
  e.g. X.forEach(y -> g(y)).
- Focus=CALL_RESULT: include lambda values applied to that immediate result in the same statement, e.g. a().map(x -> x+1).

Emit one child per lambda value; set name to:
  "lambda" for args -> body
  the referenced method's simple name for obj::meth (e.g. "meth")
  "new" for constructor refs Foo::new

Output JSON schema: {"children":[` + ecShape + `]}`,
		ExplainSystem: `Convert Java to concise NL, one sentence per line (1-based), preserving lambda and method references.
Return STRICT JSON: {"lines":[{"line":int,"text":str},...]}.`,
		RunBSystem: `Using the NL lines, extract LAMBDA VALUES per the same rules.
Return STRICT JSON: {"children":[` + ecShape + `]}.`,
		ValidatorSystem: `Validate LAMBDA VALUE candidates relative to focus. Valid if a lambda or method reference value
is created/passed at top level per the focus rules. Do NOT validate calls inside lambda bodies.
Return STRICT JSON: {"verdicts":[{"name":"...","valid":bool,"confidence":0.0,"reason":"..."}]}.`,
	}
}
