package generator

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/caseforge/internal/model"
)

// blueprint is one authoring recipe: shared graph and reasoning
// scaffolding with several interchangeable scenario texts.
type blueprint struct {
	subcategory string
	variables   map[string]model.Role
	structure   string
	steps       []string
	refusal     string
	mechanism   string
	verdict     model.Verdict
	just        string
	scenarios   []string
}

// levelPattern approximates the tier2-heavy corpus targets.
var levelPattern = []model.Level{
	model.Level2, model.Level1, model.Level2, model.Level2, model.Level2,
	model.Level3, model.Level2, model.Level2, model.Level1, model.Level2,
}

var difficultyPattern = []model.Difficulty{
	model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard, model.DifficultyMedium,
}

// Template is a deterministic generator: case i of a category always
// carries the same content, so re-running the pipeline on the same
// configuration reproduces the same candidates.
type Template struct {
	category string
	ids      IDSource

	mu  sync.Mutex
	seq int
}

// NewTemplate creates a template generator for a built-in category.
func NewTemplate(category string, ids IDSource) *Template {
	return &Template{category: category, ids: ids}
}

// Category implements Generator.
func (t *Template) Category() string { return t.category }

// Generate implements Generator. Ids come from the shared source; all
// other content is a pure function of the category and sequence number.
func (t *Template) Generate(ctx context.Context, count int) ([]model.Case, error) {
	bps, ok := categoryBlueprints[t.category]
	if !ok {
		return nil, eris.Errorf("generator: unknown category %q", t.category)
	}

	cases := make([]model.Case, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "generator: generate")
		}
		t.mu.Lock()
		seq := t.seq
		t.seq++
		t.mu.Unlock()

		cases = append(cases, t.build(bps, seq))
	}
	return cases, nil
}

func (t *Template) build(bps []blueprint, seq int) model.Case {
	bp := bps[seq%len(bps)]
	scenario := bp.scenarios[(seq/len(bps))%len(bp.scenarios)]
	level := levelPattern[seq%len(levelPattern)]

	variables := make(map[string]model.Role, len(bp.variables))
	for name, role := range bp.variables {
		variables[name] = role
	}

	c := model.Case{
		ID:              model.FormatID(t.ids.Next()),
		Scenario:        scenario,
		Variables:       variables,
		Level:           level,
		Category:        t.category,
		Subcategory:     bp.subcategory,
		Difficulty:      difficultyPattern[seq%len(difficultyPattern)],
		CausalStructure: bp.structure,
		ReasoningSteps:  append([]string(nil), bp.steps...),
		RefusalText:     bp.refusal,
	}
	switch level {
	case model.Level2:
		c.HiddenMechanism = bp.mechanism
	case model.Level3:
		c.GroundTruth = &model.GroundTruth{Verdict: bp.verdict, Justification: bp.just}
	}
	return c
}

// categoryBlueprints holds the authoring recipes per built-in category.
var categoryBlueprints = map[string][]blueprint{
	"confounding": {
		{
			subcategory: "lurking-variable",
			variables: map[string]model.Role{
				"X": model.RoleTreatment,
				"Y": model.RoleOutcome,
				"Z": model.RoleConfounder,
			},
			structure: "Z -> X, Z -> Y",
			steps: []string{
				"X and Y move together across the observed period.",
				"Z plausibly drives both X and Y at the same time.",
				"The association between X and Y survives no adjustment for Z.",
				"Therefore the data cannot separate Z's influence from any effect of X.",
			},
			refusal:   "This correlation cannot support a causal claim: a third factor plausibly drives both quantities, and without holding it fixed there is no way to isolate the claimed effect of one on the other.",
			mechanism: "A common driver raises both the supposed cause and the supposed effect, manufacturing an association where no direct mechanism exists.",
			verdict:   model.VerdictIndeterminate,
			just:      "The observed association is fully compatible with pure confounding; the direction and size of any direct effect cannot be bounded from these data.",
			scenarios: []string{
				"A coastal town's records show that months with higher ice cream sales also log more drowning incidents, and a local columnist argues that sugary snacks impair swimmers.",
				"An insurer observes that neighborhoods with more firefighters present at incidents suffer greater fire damage, and a board member proposes sending fewer crews to limit losses.",
				"A wellness blog reports that heavy coffee drinkers in a national survey develop heart disease more often than abstainers, urging readers to quit caffeine for cardiac health.",
			},
		},
		{
			subcategory: "severity-steering",
			variables: map[string]model.Role{
				"T": model.RoleTreatment,
				"O": model.RoleOutcome,
				"S": model.RoleConfounder,
			},
			structure: "S -> T, S -> O, T -> O",
			steps: []string{
				"Patients receiving T recover at visibly different rates than those who do not.",
				"Clinical severity S influences both who is offered T and how recovery O unfolds.",
				"Comparing raw recovery rates mixes the effect of T with the effect of S.",
				"Therefore the crude comparison cannot identify the effect of T on O.",
			},
			refusal:   "A raw outcome comparison cannot establish what the treatment does: assignment was steered by severity, so the treated and untreated groups were never comparable to begin with.",
			mechanism: "Sicker cases are steered toward or away from the intervention, so baseline prognosis - not the intervention - produces the gap in outcomes.",
			verdict:   model.VerdictIndeterminate,
			just:      "Assignment depended on prognosis, so the comparison confounds treatment effect with baseline severity and supports no verdict either way.",
			scenarios: []string{
				"A hospital finds that patients given a new intensive therapy die more often than patients who receive standard care, and a newspaper concludes the therapy is dangerous.",
				"A tutoring program's participants score lower on the final exam than non-participants, leading the school board to question whether tutoring harms learning outcomes.",
				"Borrowers assigned to a debt counseling service default more often than other borrowers, and an analyst suggests the counseling itself encourages default.",
			},
		},
		{
			subcategory: "seasonal-driver",
			variables: map[string]model.Role{
				"A": model.RoleTreatment,
				"B": model.RoleOutcome,
				"W": model.RoleConfounder,
			},
			structure: "W -> A, W -> B",
			steps: []string{
				"A and B rise and fall together over the calendar year.",
				"Season W shifts both behaviors through weather and daylight.",
				"No comparison within a fixed season is available in the data.",
				"Therefore the yearly co-movement is explained without any direct link.",
			},
			refusal:   "The seasonal co-movement is not evidence of causation: a calendar-driven factor moves both series, and the data offer no within-season contrast that could isolate a direct effect.",
			mechanism: "Seasonal conditions move both series in phase, so their correlation tracks the calendar rather than any direct influence.",
			verdict:   model.VerdictNotCausal,
			just:      "Once the seasonal driver is accounted for, the within-season association vanishes; the series share a clock, not a mechanism.",
			scenarios: []string{
				"A city's open-data portal shows that bicycle commuting and air-conditioner electricity demand track each other month by month, prompting a claim that cycling strains the power grid.",
				"A retailer notices that sunscreen revenue and lifeguard overtime hours correlate almost perfectly across the year and wonders which one is causing the other.",
				"An agricultural newsletter observes that pollen counts and outdoor concert attendance move in lockstep and speculates that concerts aggravate allergies citywide.",
			},
		},
	},
	"mediation": {
		{
			subcategory: "overcontrol",
			variables: map[string]model.Role{
				"X": model.RoleTreatment,
				"M": model.RoleMediator,
				"Y": model.RoleOutcome,
			},
			structure: "X -> M, M -> Y",
			steps: []string{
				"X changes M, and M in turn changes Y.",
				"An analysis that holds M fixed blocks the very channel through which X works.",
				"The adjusted estimate near zero is expected even when X strongly affects Y.",
				"Therefore the adjusted analysis cannot be read as showing X has no effect.",
			},
			refusal:   "The near-zero adjusted estimate cannot rule out an effect: the adjustment held fixed the intermediate step that transmits the effect, so the analysis removed the mechanism it was meant to measure.",
			mechanism: "The effect flows entirely through the intermediate variable, so adjusting for it absorbs the effect and leaves a spurious null.",
			verdict:   model.VerdictCausal,
			just:      "The unadjusted contrast and the mediator's known pathway support a real effect of the exposure transmitted through the intermediate step.",
			scenarios: []string{
				"A labor economist reports that a job training program shows no wage effect once occupational certification is held constant, and a critic cites this as proof the program is useless.",
				"A nutrition study finds that exercise shows no association with blood pressure after statistically fixing participants' resting heart rate, and a columnist concludes exercise does not matter.",
				"An education researcher finds that class size has no effect on test scores once teacher attention per pupil is controlled, and an op-ed declares small classes a waste of money.",
			},
		},
		{
			subcategory: "chain",
			variables: map[string]model.Role{
				"A": model.RoleTreatment,
				"M": model.RoleMediator,
				"B": model.RoleOutcome,
			},
			structure: "A -> M -> B",
			steps: []string{
				"A affects M directly and B only through M.",
				"Any intervention on A must move M before it can move B.",
				"Measuring B too early misses the effect still propagating through M.",
				"Therefore timing, not absence of mechanism, explains a null early reading.",
			},
			refusal:   "An early null reading cannot settle the question: the effect travels through an intermediate step with its own lag, so the outcome was measured before the mechanism could complete.",
			mechanism: "The causal chain has a lag at the intermediate link, so early measurement windows systematically understate the downstream effect.",
			verdict:   model.VerdictCausal,
			just:      "The chain structure plus the documented lag at the intermediate link implies the downstream effect is real but delayed.",
			scenarios: []string{
				"A public health agency rolls out a vaccination campaign and is criticized when case counts fail to fall within two weeks, before population immunity has had time to build.",
				"A startup ships an onboarding redesign and declares it a failure after one week because revenue is flat, although activation rates have already doubled.",
				"A city repaves arterial roads to cut commute times and officials call the project wasted money when travel times are unchanged during the first month of construction closures.",
			},
		},
		{
			subcategory: "partial-channel",
			variables: map[string]model.Role{
				"X": model.RoleTreatment,
				"M": model.RoleMediator,
				"Y": model.RoleOutcome,
			},
			structure: "X -> M, M -> Y, X -> Y",
			steps: []string{
				"X reaches Y both directly and through M.",
				"The mediated share and the direct share need not have the same sign.",
				"An estimate that fixes M recovers only the direct share.",
				"Therefore the adjusted and unadjusted estimates answer different questions.",
			},
			refusal:   "These two estimates cannot be averaged into one answer: one includes the indirect channel and one deliberately excludes it, so they measure different causal quantities.",
			mechanism: "Part of the effect is carried by an intermediate channel, so estimates that fix the intermediate recover only the direct remainder.",
			verdict:   model.VerdictCausal,
			just:      "Both the direct and mediated channels are supported by the design; the total effect combines them even though adjusted analyses isolate one.",
			scenarios: []string{
				"A bank finds that financial literacy workshops raise savings directly and also indirectly by increasing budgeting app usage, and two internal reports disagree sharply on the workshop's value.",
				"A sports scientist measures that altitude training improves race times partly through red cell mass and partly through pacing discipline, and rival coaches quote only the estimate that suits them.",
				"A marketing team sees that a loyalty program lifts repeat purchases directly and through push notification engagement, and the quarterly review presents two incompatible effect sizes.",
			},
		},
	},
	"collider": {
		{
			subcategory: "admission-bias",
			variables: map[string]model.Role{
				"T": model.RoleTreatment,
				"O": model.RoleOutcome,
				"C": model.RoleCollider,
			},
			structure: "T -> C, O -> C",
			steps: []string{
				"Both T and O independently raise the chance of C.",
				"The data at hand include only units where C occurred.",
				"Within that selected group, T and O become negatively associated by construction.",
				"Therefore the observed association is an artifact of how the sample was assembled.",
			},
			refusal:   "No causal conclusion is available from this sample: membership was determined by a variable that both factors influence, and selection on it manufactures an association that does not exist in the full population.",
			mechanism: "Sample membership depends on a common consequence of both factors, so restricting to the sample induces a spurious association between them.",
			verdict:   model.VerdictNotCausal,
			just:      "The association appears only within the selected stratum; in the unselected population the two factors are independent.",
			scenarios: []string{
				"Among students admitted to an elite university, high test scores correlate negatively with athletic achievement, and a dean concludes that sports undermine studying.",
				"Within a hospital's inpatient ward, diabetes appears protective against pneumonia severity, and a resident drafts a paper on its surprising benefits.",
				"Among startups that secured venture funding, founder experience correlates negatively with product quality, and a blog argues novice founders build better products.",
			},
		},
		{
			subcategory: "survivor-pool",
			variables: map[string]model.Role{
				"A": model.RoleTreatment,
				"B": model.RoleOutcome,
				"S": model.RoleCollider,
			},
			structure: "A -> S, B -> S",
			steps: []string{
				"Remaining in the observed pool S depends on both A and B.",
				"Units weak on both A and B have already left the pool.",
				"The survivors therefore show a trade-off between A and B that the full population lacks.",
				"Therefore the negative association among survivors says nothing about the population.",
			},
			refusal:   "The survivor data cannot answer the causal question: staying observable required strength on at least one of the two factors, so the surviving sample exhibits a trade-off that selection created, not causation.",
			mechanism: "Attrition removes units weak on both factors, leaving a survivor pool in which the factors trade off mechanically.",
			verdict:   model.VerdictNotCausal,
			just:      "The trade-off is produced by differential attrition; no mechanism links the two factors in the full population.",
			scenarios: []string{
				"Among restaurants still open after five years, low prices correlate with poor locations, and a consultant advises new owners that cheap menus attract bad neighborhoods.",
				"Among long-running open source projects, sparse documentation correlates with high code quality, and a maintainer argues that writing docs crowds out careful engineering.",
				"Among veteran marathon runners, unorthodox training schedules correlate with fewer injuries, and a magazine credits the schedules rather than the attrition of fragile runners.",
			},
		},
		{
			subcategory: "dual-cause-screening",
			variables: map[string]model.Role{
				"X": model.RoleTreatment,
				"Y": model.RoleOutcome,
				"K": model.RoleCollider,
			},
			structure: "X -> K, Y -> K",
			steps: []string{
				"A screening flag K is raised by either X or Y.",
				"Analysts examine only flagged records, where K is constant.",
				"Within flagged records, knowing X is absent makes Y almost certain, and vice versa.",
				"Therefore the strong inverse pattern reflects the screening rule, not an effect.",
			},
			refusal:   "The flagged subset cannot reveal whether one factor affects the other: the screening rule fires on either factor, so within flagged records the two are forced into an inverse pattern regardless of any real relationship.",
			mechanism: "The screening rule is a common effect of both factors, and analyzing only screened records conditions on that common effect.",
			verdict:   model.VerdictNotCausal,
			just:      "The inverse dependence is a deterministic artifact of the disjunctive screening rule and vanishes outside the screened subset.",
			scenarios: []string{
				"In a fraud team's queue of flagged transactions, unusual purchase amounts correlate inversely with foreign IP addresses, and an analyst theorizes that overseas fraudsters prefer small charges.",
				"Among bug reports that reached the triage board, crash severity correlates inversely with reproducibility, and a manager concludes severe bugs are inherently flaky.",
				"Within a clinic's referral list, abnormal lab values correlate inversely with alarming symptoms, and a trainee infers that silent cases are biochemically worse.",
			},
		},
	},
	"selection": {
		{
			subcategory: "self-selection",
			variables: map[string]model.Role{
				"P": model.RoleTreatment,
				"R": model.RoleOutcome,
				"E": model.RoleConfounder,
			},
			structure: "E -> P, E -> R",
			steps: []string{
				"Participation P was chosen by the units themselves.",
				"The disposition E that drives enrollment also shapes the outcome R.",
				"Participants and non-participants therefore differ before the program begins.",
				"Therefore outcome gaps cannot be attributed to the program.",
			},
			refusal:   "The comparison cannot estimate the program's effect: people chose whether to participate, and whatever drove that choice also drives the outcome, so the groups differ for reasons the data do not capture.",
			mechanism: "Enrollment is voluntary, so a pre-existing disposition produces both participation and the favorable outcome attributed to the program.",
			verdict:   model.VerdictIndeterminate,
			just:      "Self-selection leaves the treated and untreated groups incomparable; the program's contribution cannot be separated from the enrollment disposition.",
			scenarios: []string{
				"Graduates of an optional leadership seminar earn promotions faster than colleagues who skipped it, and the HR department cites this as proof of the seminar's impact.",
				"Users who enable a fitness app's premium coaching walk more steps than free-tier users, and the company's press release credits the coaching algorithms.",
				"Households that volunteered for a smart thermostat trial use less energy than neighbors, and the utility proposes billing credits based on the trial's savings.",
			},
		},
		{
			subcategory: "frame-truncation",
			variables: map[string]model.Role{
				"X": model.RoleTreatment,
				"Y": model.RoleOutcome,
				"F": model.RoleCollider,
			},
			structure: "X -> F, Y -> F",
			steps: []string{
				"Appearing in the sampling frame F depends on both X and Y.",
				"The analysis sees only units inside the frame.",
				"Inside the frame, X and Y exhibit a relationship the full population lacks.",
				"Therefore the estimate is a property of the frame, not of the population.",
			},
			refusal:   "No population-level conclusion follows from this sample: inclusion in the data depended on both variables under study, which distorts their joint distribution in the observed frame.",
			mechanism: "Frame inclusion is a common effect of the studied variables, so the sampled joint distribution is truncated and distorted.",
			verdict:   model.VerdictIndeterminate,
			just:      "The within-frame association confounds the population relationship with the inclusion rule; the data cannot recover the untruncated dependence.",
			scenarios: []string{
				"A survey conducted in airport lounges finds that business travelers report both higher income and stronger airline loyalty, and a marketer maps this onto the general flying public.",
				"A telephone poll run on weekday afternoons finds retirees dominate the sample and concludes the town overwhelmingly opposes evening construction noise.",
				"A product team studies churn using only accounts that contacted support, then generalizes the support-driven churn patterns to the whole customer base.",
			},
		},
		{
			subcategory: "loss-to-followup",
			variables: map[string]model.Role{
				"D": model.RoleTreatment,
				"H": model.RoleOutcome,
				"L": model.RoleCollider,
			},
			structure: "D -> L, H -> L",
			steps: []string{
				"Dropout L depends on both the regimen D and the health trajectory H.",
				"Endpoint data exist only for those who remained, where L is fixed.",
				"The completers show a regimen-outcome association shaped by who left.",
				"Therefore completer-only analysis cannot identify the regimen's effect.",
			},
			refusal:   "The completers' comparison cannot support an effect estimate: leaving the study depended on both the regimen and health itself, so restricting to completers distorts the very association in question.",
			mechanism: "Differential dropout ties the missingness to both regimen and outcome, biasing any completers-only contrast.",
			verdict:   model.VerdictIndeterminate,
			just:      "With informative dropout, the completer association is compatible with benefit, harm, or no effect of the regimen.",
			scenarios: []string{
				"In a year-long diet study, participants who completed the strict regimen show excellent bloodwork, while most who felt unwell quietly dropped out along the way.",
				"A remote-work productivity tracker reports stellar focus metrics, but employees who struggled with the tool uninstalled it within the first month.",
				"An online course boasts a 95 percent satisfaction rate calculated from learners who finished, ignoring the majority who abandoned the course midway.",
			},
		},
	},
	"reverse-causation": {
		{
			subcategory: "direction-swap",
			variables: map[string]model.Role{
				"X": model.RoleTreatment,
				"Y": model.RoleOutcome,
			},
			structure: "Y -> X",
			steps: []string{
				"X and Y are strongly associated in the cross-section.",
				"The mechanism from Y to X is at least as plausible as the reverse.",
				"Nothing in the data fixes the temporal order of X and Y.",
				"Therefore the claimed direction is an assumption, not a finding.",
			},
			refusal:   "The association cannot establish the claimed direction: the data are equally consistent with the outcome driving the supposed cause, and no temporal ordering is available to break the tie.",
			mechanism: "The dependence runs from the supposed effect back to the supposed cause, inverting the claimed mechanism.",
			verdict:   model.VerdictNotCausal,
			just:      "The plausible mechanism runs in the opposite direction; the claimed cause is better explained as a response.",
			scenarios: []string{
				"A lifestyle magazine notes that people with large home libraries are unusually well-read and recommends buying books in bulk to become a better reader.",
				"A business journal observes that profitable companies spend generously on employee perks and advises struggling firms to add perks to boost profits.",
				"A sports columnist points out that confident players win more matches and urges coaches to train confidence before technique.",
			},
		},
		{
			subcategory: "feedback-suspect",
			variables: map[string]model.Role{
				"A": model.RoleTreatment,
				"B": model.RoleOutcome,
				"U": model.RoleConfounder,
			},
			structure: "U -> A, U -> B",
			steps: []string{
				"A is promoted as the lever that moves B.",
				"A reverse channel from B to A is equally consistent with the data.",
				"A common driver U could also produce the association with no direct link.",
				"Therefore three incompatible structures explain the same observation.",
			},
			refusal:   "This pattern cannot identify a lever: the forward story, the reverse story, and a common driver all fit the observed association, and the data contain nothing that discriminates among them.",
			mechanism: "An unobserved driver moves both series while the promoted direction contributes little or nothing.",
			verdict:   model.VerdictIndeterminate,
			just:      "Forward causation, reverse causation and confounding are all observationally equivalent here.",
			scenarios: []string{
				"An editorial argues that optimistic consumer sentiment drives stock market gains, though market gains just as plausibly lift sentiment and the news cycle moves both.",
				"A city claims its new bike lanes caused the surge in cycling, while advocates note the lanes were built precisely where cycling was already surging.",
				"A streaming platform asserts that its recommendations create binge-watching, though binge-prone viewers generate the engagement data the recommendations learn from.",
			},
		},
		{
			subcategory: "symptom-as-cause",
			variables: map[string]model.Role{
				"S": model.RoleTreatment,
				"D": model.RoleOutcome,
			},
			structure: "D -> S",
			steps: []string{
				"S precedes the diagnosis of D in the records.",
				"Recorded timing reflects detection, not onset.",
				"D plausibly produced S long before D was recorded.",
				"Therefore the record order cannot establish that S causes D.",
			},
			refusal:   "Record timestamps cannot settle causal order here: the condition typically exists well before it is recorded, so the supposed cause may simply be its earliest visible symptom.",
			mechanism: "The underlying condition produces the early marker, and detection lag makes the marker appear first in the records.",
			verdict:   model.VerdictNotCausal,
			just:      "The marker is an early manifestation of the condition rather than a cause of it.",
			scenarios: []string{
				"An actuarial report finds that people who buy sleep aids are later diagnosed with anxiety disorders and wonders whether the aids trigger anxiety.",
				"A dermatology dataset shows that patients prescribed fatigue supplements often receive thyroid diagnoses months later, prompting a supplement safety review.",
				"A fleet maintenance log links frequent oil top-ups to subsequent engine failures, and a procurement officer proposes banning top-ups to prevent failures.",
			},
		},
	},
}
