package report

import (
	"reflect"
	"testing"
	"time"

	"fintrack/internal/core"
)

func cents(c int64) core.Money { return core.Money{Cents: c} }

func scenario() []core.Transaction {
	return []core.Transaction{
		{ID: 1, Amount: cents(50000), Type: core.Income, Category: "Salary", Date: day(2025, 1, 5)},
		{ID: 2, Amount: cents(20000), Type: core.Expense, Category: "Food", Date: day(2025, 1, 10)},
		{ID: 3, Amount: cents(10000), Type: core.Expense, Category: "Food", Date: day(2025, 2, 1)},
	}
}

func TestScenario(t *testing.T) {
	txs := scenario()
	r := NormalizeRange(day(2025, 1, 1), day(2025, 2, 28))

	sum := Summarize(txs, r)
	if sum.TotalIncome != cents(50000) || sum.TotalExpenses != cents(30000) || sum.NetBalance != cents(20000) {
		t.Fatalf("unexpected summary %+v", sum)
	}

	ranked := RankCategories(txs, nil, 5)
	want := []CategoryAmount{{Name: "Food", Amount: cents(30000), Color: UnknownCategoryColor}}
	if !reflect.DeepEqual(ranked, want) {
		t.Fatalf("ranking: want %+v, got %+v", want, ranked)
	}

	buckets := BucketByMonth(txs, r, LabelMonthYear)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Label != "Jan 2025" || buckets[0].Income != cents(50000) || buckets[0].Expenses != cents(20000) {
		t.Errorf("unexpected first bucket %+v", buckets[0])
	}
	if buckets[1].Label != "Feb 2025" || !buckets[1].Income.IsZero() || buckets[1].Expenses != cents(10000) {
		t.Errorf("unexpected second bucket %+v", buckets[1])
	}
}

func TestSummarize(t *testing.T) {
	txs := scenario()

	t.Run("idempotent", func(t *testing.T) {
		r := NormalizeRange(day(2025, 1, 1), day(2025, 1, 31))
		if a, b := Summarize(txs, r), Summarize(txs, r); a != b {
			t.Fatalf("%+v != %+v", a, b)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := Summarize(nil, Range{}); got != (Summary{}) {
			t.Fatalf("expected zero summary, got %+v", got)
		}
	})

	t.Run("unbounded takes everything", func(t *testing.T) {
		got := Summarize(txs, Range{End: day(2025, 1, 1)})
		if got.Count != 3 {
			t.Fatalf("expected 3 transactions, got %d", got.Count)
		}
	})

	t.Run("conservation", func(t *testing.T) {
		mixed := []core.Transaction{
			{Amount: cents(1), Type: core.Income, Date: day(2025, 1, 1)},
			{Amount: cents(10), Type: core.Expense, Date: day(2025, 1, 1)},
			{Amount: cents(33), Type: core.Expense, Date: day(2025, 1, 1)},
			{Amount: cents(7), Type: core.Income, Date: day(2025, 1, 1)},
		}
		s := Summarize(mixed, Range{})
		if s.TotalIncome.Sub(s.TotalExpenses) != s.NetBalance || s.NetBalance != cents(-35) {
			t.Fatalf("unexpected %+v", s)
		}
	})

	t.Run("end of day inclusive", func(t *testing.T) {
		r := NormalizeRange(day(2025, 1, 1), day(2025, 1, 31))
		edge := []core.Transaction{
			{Amount: cents(100), Type: core.Expense, Date: r.End},
			{Amount: cents(900), Type: core.Expense, Date: r.End.Add(time.Millisecond)},
		}
		if got := Summarize(edge, r).TotalExpenses; got != cents(100) {
			t.Fatalf("expected only the boundary transaction, got %v", got)
		}
	})
}

func TestSavingsRate(t *testing.T) {
	if got := (Summary{}).SavingsRate(); got != 0 {
		t.Fatalf("expected 0 without income, got %v", got)
	}
	s := Summary{TotalIncome: cents(1000), NetBalance: cents(250)}
	if got := s.SavingsRate(); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
}

func TestBucketByMonth(t *testing.T) {
	t.Run("zero buckets", func(t *testing.T) {
		got := BucketByMonth(nil, NormalizeRange(day(2025, 1, 1), day(2025, 3, 31)), LabelMonthYear)
		labels := make([]string, len(got))
		for i, b := range got {
			labels[i] = b.Label
			if !b.Income.IsZero() || !b.Expenses.IsZero() {
				t.Errorf("bucket %s not empty", b.Label)
			}
		}
		if !reflect.DeepEqual(labels, []string{"Jan 2025", "Feb 2025", "Mar 2025"}) {
			t.Fatalf("unexpected labels %v", labels)
		}
	})

	t.Run("start mid month", func(t *testing.T) {
		got := BucketByMonth(nil, NormalizeRange(day(2024, 11, 20), day(2025, 1, 2)), "")
		if len(got) != 3 || got[0].Label != "Nov 2024" || got[2].Label != "Jan 2025" {
			t.Fatalf("unexpected buckets %+v", got)
		}
	})

	t.Run("short labels collide", func(t *testing.T) {
		txs := []core.Transaction{
			{Amount: cents(100), Type: core.Expense, Date: day(2024, 1, 15)},
			{Amount: cents(200), Type: core.Expense, Date: day(2025, 1, 15)},
		}
		got := BucketByMonth(txs, NormalizeRange(day(2024, 1, 1), day(2025, 1, 31)), LabelMonthName)
		if len(got) != 12 {
			t.Fatalf("expected 12 distinct labels, got %d", len(got))
		}
		if got[0].Label != "January" || got[0].Expenses != cents(300) {
			t.Fatalf("expected both Januaries merged, got %+v", got[0])
		}
	})

	t.Run("unbounded uses data span", func(t *testing.T) {
		got := BucketByMonth(scenario(), Range{}, LabelMonthYear)
		if len(got) != 2 {
			t.Fatalf("expected 2 buckets, got %+v", got)
		}
		if got := BucketByMonth(nil, Range{}, LabelMonthYear); len(got) != 0 {
			t.Fatalf("expected no buckets, got %+v", got)
		}
	})

	t.Run("out of range dropped", func(t *testing.T) {
		got := BucketByMonth(scenario(), NormalizeRange(day(2025, 2, 1), day(2025, 2, 28)), LabelMonthYear)
		if len(got) != 1 || !got[0].Income.IsZero() || got[0].Expenses != cents(10000) {
			t.Fatalf("unexpected %+v", got)
		}
	})
}

func TestCompareMonths(t *testing.T) {
	txs := []core.Transaction{
		{Amount: cents(100), Type: core.Expense, Date: day(2024, 12, 3)},
		{Amount: cents(200), Type: core.Expense, Date: day(2025, 5, 3)},
		{Amount: cents(300), Type: core.Income, Date: day(2025, 6, 30)},
	}
	r := NormalizeRange(day(2024, 6, 1), day(2025, 6, 30))
	got := CompareMonths(txs, r, 0)
	if len(got) != 6 {
		t.Fatalf("expected 6 buckets, got %d", len(got))
	}
	if got[0].Label != "January" || got[5].Label != "June" {
		t.Fatalf("unexpected window %s..%s", got[0].Label, got[5].Label)
	}
	if got[4].Expenses != cents(200) || got[5].Income != cents(300) {
		t.Fatalf("unexpected totals %+v", got)
	}

	short := CompareMonths(txs, NormalizeRange(day(2025, 5, 10), day(2025, 6, 30)), 6)
	if len(short) != 2 || short[0].Label != "May" {
		t.Fatalf("window should not start before range: %+v", short)
	}
}

func TestRankCategories(t *testing.T) {
	cats := []core.Category{
		{Name: "Food", Color: "#111111", Type: core.Income},
		{Name: "Food", Color: "#FF5722", Type: core.Expense},
		{Name: "Rent", Color: "#222222", Type: core.Expense},
	}
	txs := []core.Transaction{
		{Amount: cents(500), Type: core.Expense, Category: "Travel"},
		{Amount: cents(500), Type: core.Expense, Category: "Food"},
		{Amount: cents(900), Type: core.Income, Category: "Salary"},
		{Amount: cents(700), Type: core.Expense, Category: "Rent"},
	}

	got := RankCategories(txs, cats, 0)
	want := []CategoryAmount{
		{Name: "Rent", Amount: cents(700), Color: "#222222"},
		{Name: "Travel", Amount: cents(500), Color: UnknownCategoryColor},
		{Name: "Food", Amount: cents(500), Color: "#FF5722"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %+v, got %+v", want, got)
	}

	if got := RankCategories(txs, cats, 1); len(got) != 1 || got[0].Name != "Rent" {
		t.Fatalf("limit not applied: %+v", got)
	}
	if got := RankCategories(nil, cats, 5); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %+v", got)
	}
	if share := got[0].Share(core.Money{}); share != 0 {
		t.Fatalf("share of zero total should be 0, got %v", share)
	}
}

func TestFilter(t *testing.T) {
	min, max := cents(1000), cents(5000)
	txs := []core.Transaction{
		{ID: 1, Amount: cents(1200), Type: core.Expense, Category: "banana", Description: "Weekly GROCERIES", Date: day(2025, 1, 3)},
		{ID: 2, Amount: cents(800), Type: core.Expense, Category: "Apple", Description: "groceries top-up", Date: day(2025, 1, 4)},
		{ID: 3, Amount: cents(5000), Type: core.Income, Category: "Cherry", Description: "refund groceries", Date: day(2025, 1, 1)},
		{ID: 4, Amount: cents(4000), Type: core.Expense, Category: "avocado", Description: "", Date: day(2025, 1, 2)},
	}

	cases := []struct {
		name string
		c    Criteria
		want []int64
	}{
		{"default newest first", Criteria{}, []int64{2, 1, 4, 3}},
		{"query is case insensitive", Criteria{Query: "Groceries"}, []int64{2, 1, 3}},
		{"category exact", Criteria{Category: "avocado"}, []int64{4}},
		{"type", Criteria{Type: core.Income}, []int64{3}},
		{"amount bounds inclusive", Criteria{MinAmount: &min, MaxAmount: &max}, []int64{1, 4, 3}},
		{"start only", Criteria{Start: day(2025, 1, 3)}, []int64{2, 1}},
		{"end only", Criteria{End: day(2025, 1, 2)}, []int64{4, 3}},
		{"combined", Criteria{Query: "groceries", Type: core.Expense, MinAmount: &min}, []int64{1}},
		{"amount asc", Criteria{SortBy: SortByAmount, SortAsc: true}, []int64{2, 1, 4, 3}},
		{"amount desc", Criteria{SortBy: SortByAmount}, []int64{3, 4, 1, 2}},
		{"category locale order", Criteria{SortBy: SortByCategory, SortAsc: true}, []int64{2, 4, 1, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Filter(txs, tc.c)
			ids := make([]int64, len(got))
			for i, tx := range got {
				ids[i] = tx.ID
			}
			if !reflect.DeepEqual(ids, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, ids)
			}
		})
	}

	if txs[0].ID != 1 || txs[3].ID != 4 {
		t.Fatal("input slice was reordered")
	}
}

func TestParseSortField(t *testing.T) {
	for in, want := range map[string]SortField{"": SortByDate, "Amount": SortByAmount, " category ": SortByCategory} {
		got, err := ParseSortField(in)
		if err != nil || got != want {
			t.Errorf("ParseSortField(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseSortField("payee"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestMonthOverMonth(t *testing.T) {
	txs := []core.Transaction{
		{Amount: cents(1000), Type: core.Expense, Date: day(2025, 1, 31)},
		{Amount: cents(1500), Type: core.Expense, Date: day(2025, 2, 10)},
		{Amount: cents(9999), Type: core.Income, Date: day(2025, 2, 11)},
	}
	tr := MonthOverMonth(txs, day(2025, 2, 20))
	if tr.Current != cents(1500) || tr.Previous != cents(1000) || tr.Direction != DirectionUp {
		t.Fatalf("unexpected trend %+v", tr)
	}
	if tr.PercentChange == nil || *tr.PercentChange != 50 {
		t.Fatalf("expected +50%%, got %v", tr.PercentChange)
	}

	flat := MonthOverMonth(txs, day(2025, 4, 1))
	if flat.PercentChange != nil || flat.Direction != DirectionFlat {
		t.Fatalf("expected no change without previous expenses, got %+v", flat)
	}
}

func TestRecent(t *testing.T) {
	txs := []core.Transaction{
		{ID: 1, Date: day(2025, 1, 1)},
		{ID: 2, Date: day(2025, 1, 3)},
		{ID: 3, Date: day(2025, 1, 3)},
		{ID: 4, Date: day(2025, 1, 2)},
	}
	got := Recent(txs, 3)
	if len(got) != 3 || got[0].ID != 3 || got[1].ID != 2 || got[2].ID != 4 {
		t.Fatalf("unexpected order %+v", got)
	}
	if len(Recent(txs, 0)) != 4 {
		t.Fatal("n <= 0 should return everything")
	}
}

func TestBuild(t *testing.T) {
	snap := Snapshot{
		Transactions: scenario(),
		Categories:   []core.Category{{Name: "Food", Color: "#FF5722", Type: core.Expense}},
	}
	rep := Build(snap, Options{Range: NormalizeRange(day(2025, 1, 1), day(2025, 2, 28))})

	if rep.Days != 59 {
		t.Errorf("expected 59 days, got %d", rep.Days)
	}
	if rep.SavingsRate != 40 {
		t.Errorf("expected 40%% savings, got %v", rep.SavingsRate)
	}
	if len(rep.Monthly) != 2 || len(rep.Comparison) != 2 || rep.Comparison[0].Label != "January" {
		t.Errorf("unexpected series %+v / %+v", rep.Monthly, rep.Comparison)
	}
	if len(rep.TopCategories) != 1 || rep.TopCategories[0].Color != "#FF5722" {
		t.Errorf("unexpected top categories %+v", rep.TopCategories)
	}
	if len(rep.Recent) != 3 || rep.Recent[0].ID != 3 {
		t.Errorf("unexpected recent %+v", rep.Recent)
	}
	if rep.Trend == nil || rep.Trend.Current != cents(10000) || rep.Trend.Previous != cents(20000) {
		t.Errorf("unexpected trend %+v", rep.Trend)
	}

	wide := Build(snap, Options{Range: NormalizeRange(day(2024, 1, 1), day(2025, 2, 28)), Labels: LabelMonthName})
	if len(wide.Monthly) != 14 || wide.Monthly[0].Label != "Jan 2024" {
		t.Errorf("short labels should widen on long ranges, got %d buckets", len(wide.Monthly))
	}

	empty := Build(Snapshot{}, Options{})
	if empty.Trend != nil || len(empty.Monthly) != 0 || empty.Summary != (Summary{}) {
		t.Errorf("unexpected empty report %+v", empty)
	}
}
