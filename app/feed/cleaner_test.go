package feed

import (
	"testing"
)

func TestCleanerStripsHashtagMarkup(t *testing.T) {
	cleaner := NewCleaner()

	got := cleaner.Run("#热门话题#今天的新闻很有意思")
	if got != "今天的新闻很有意思" {
		t.Errorf("Expected hashtag markup stripped, got %q", got)
	}
}

func TestCleanerStripsMultipleHashtags(t *testing.T) {
	cleaner := NewCleaner()

	got := cleaner.Run("#a#中间#b#结尾")
	if got != "中间结尾" {
		t.Errorf("Expected both hashtag blocks stripped, got %q", got)
	}
}

func TestCleanerStripsHTML(t *testing.T) {
	cleaner := NewCleaner()

	got := cleaner.Run(`before <a href="https://example.com">link</a> after`)
	if got != "before link after" {
		t.Errorf("Expected HTML tags stripped, got %q", got)
	}
}

func TestCleanerNormalizesFullwidthForms(t *testing.T) {
	cleaner := NewCleaner()

	got := cleaner.Run("ＡＢＣ１２３")
	if got != "ABC123" {
		t.Errorf("Expected fullwidth forms narrowed, got %q", got)
	}
}

func TestCleanerCollapsesWhitespace(t *testing.T) {
	cleaner := NewCleaner()

	got := cleaner.Run("  one \n two\t three  ")
	if got != "one two three" {
		t.Errorf("Expected whitespace collapsed, got %q", got)
	}
}
