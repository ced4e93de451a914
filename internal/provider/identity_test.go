package provider

import (
	"errors"
	"testing"
)

func TestNormalizeImageURL(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "lowercases scheme and host",
			raw:  "HTTPS://I.Pinimg.COM/736x/ab/cd/ef.jpg",
			want: "https://i.pinimg.com/736x/ab/cd/ef.jpg",
		},
		{
			name: "strips tracking params and sorts the rest",
			raw:  "https://img.example.com/a.jpg?utm_source=pinterest&size=large&fbclid=xyz&crop=1",
			want: "https://img.example.com/a.jpg?crop=1&size=large",
		},
		{
			name: "drops fragment",
			raw:  "https://img.example.com/a.jpg#section",
			want: "https://img.example.com/a.jpg",
		},
		{
			name: "drops default https port",
			raw:  "https://img.example.com:443/a.jpg",
			want: "https://img.example.com/a.jpg",
		},
		{
			name: "drops default http port",
			raw:  "http://img.example.com:80/a.jpg",
			want: "http://img.example.com/a.jpg",
		},
		{
			name: "trims trailing slash",
			raw:  "https://img.example.com/photos/a/",
			want: "https://img.example.com/photos/a",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeImageURL(tc.raw)
			if err != nil {
				t.Fatalf("NormalizeImageURL(%q) failed: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Errorf("NormalizeImageURL(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalizeImageURLSameImageDifferentTracking(t *testing.T) {
	a, err := NormalizeImageURL("https://img.example.com/a.jpg?utm_source=feed&gclid=1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NormalizeImageURL("https://IMG.example.com/a.jpg?utm_source=search")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("tracking variants normalize differently: %q vs %q", a, b)
	}
}

func TestNormalizeImageURLRejectsUnusable(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-a-url", "/relative/path.jpg"} {
		if _, err := NormalizeImageURL(raw); !errors.Is(err, ErrNoImageURL) {
			t.Errorf("NormalizeImageURL(%q) err = %v, want ErrNoImageURL", raw, err)
		}
	}
}

func TestDomain(t *testing.T) {
	if got := Domain("https://I.Pinimg.com:443/736x/a.jpg"); got != "i.pinimg.com" {
		t.Errorf("Domain() = %q, want i.pinimg.com", got)
	}
	if got := Domain("://bad"); got != "" {
		t.Errorf("Domain() on unparseable = %q, want empty", got)
	}
}
