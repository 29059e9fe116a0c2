package prompt

import "testing"

func TestPreview(t *testing.T) {
	if got := Preview("짧은 글", 10); got != "짧은 글" {
		t.Fatalf("got %q", got)
	}
	if got := Preview("가나다라마", 3); got != "가나다..." {
		t.Fatalf("got %q", got)
	}
}

func TestWordCountAndTokens(t *testing.T) {
	if n := WordCount("  위 포트폴리오를\n보고  분석 "); n != 4 {
		t.Fatalf("WordCount = %d", n)
	}
	if n := WordCount("   "); n != 0 {
		t.Fatalf("WordCount blank = %d", n)
	}
	if n := EstimateTokens("가나다라마"); n != 2 {
		t.Fatalf("EstimateTokens = %d", n)
	}
	if n := EstimateTokens(""); n != 0 {
		t.Fatalf("EstimateTokens empty = %d", n)
	}
}
