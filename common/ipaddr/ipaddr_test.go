package ipaddr

import (
	"reflect"
	"testing"
)

func TestIsValidIPv4(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple address", "1.2.3.4", true},
		{"all zeros", "0.0.0.0", true},
		{"broadcast", "255.255.255.255", true},
		{"max octets", "255.0.255.0", true},
		{"octet over range", "256.1.1.1", false},
		{"last octet over range", "1.1.1.999", false},
		{"three octets", "1.2.3", false},
		{"five octets", "1.2.3.4.5", false},
		{"empty string", "", false},
		{"leading whitespace", " 1.2.3.4", false},
		{"trailing whitespace", "1.2.3.4 ", false},
		{"embedded newline", "1.2.3.4\n", false},
		{"hostname", "example.com", false},
		{"with port", "1.2.3.4:80", false},
		{"with scheme", "http://1.2.3.4", false},
		{"signed octet", "+1.2.3.4", false},
		{"leading zero octet", "1.02.3.4", false},
		{"single zero octet", "1.0.3.4", true},
		{"ipv6", "::1", false},
		{"cidr is not a plain address", "1.2.3.0/24", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidIPv4(tt.input); got != tt.want {
				t.Errorf("IsValidIPv4(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidIPv4OctetGrid(t *testing.T) {
	// Boundary values for each octet position.
	for _, v := range []string{"0", "1", "254", "255"} {
		addr := v + "." + v + "." + v + "." + v
		if !IsValidIPv4(addr) {
			t.Errorf("IsValidIPv4(%q) = false, want true", addr)
		}
	}
	for _, v := range []string{"256", "300", "999"} {
		addr := "1.2." + v + ".4"
		if IsValidIPv4(addr) {
			t.Errorf("IsValidIPv4(%q) = true, want false", addr)
		}
	}
}

func TestIsValidIPv4OrCIDR(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1.2.3.4", true},
		{"1.2.3.0/24", true},
		{"10.0.0.0/8", true},
		{"0.0.0.0/0", true},
		{"1.2.3.4/32", true},
		{"1.2.3.4/33", false},
		{"1.2.3.4/", false},
		{"256.0.0.0/8", false},
		{"1.2.3/24", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidIPv4OrCIDR(tt.input); got != tt.want {
			t.Errorf("IsValidIPv4OrCIDR(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsPrivate(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"169.254.10.10", true},
		{"0.0.0.0", true},
		{"255.255.255.255", true},
		{"224.0.0.1", true},
		{"240.0.0.1", true},
		{"8.8.8.8", false},
		{"203.0.113.9", false},
		{"not-an-ip", false},
	}

	for _, tt := range tests {
		if got := IsPrivate(tt.input); got != tt.want {
			t.Errorf("IsPrivate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsPublic(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"8.8.8.8", true},
		{"203.0.113.9", true},
		{"10.0.0.1", false},
		{"0.0.0.0", false},
		{"255.255.255.255", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		if got := IsPublic(tt.input); got != tt.want {
			t.Errorf("IsPublic(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"1.2.3.4", "1.2.3.4", true},
		{"010.1.2.3", "", false},
		{"1.2.3.77/24", "1.2.3.0", true},
		{"10.20.30.40/8", "10.0.0.0", true},
		{"1.2.3.4/32", "1.2.3.4", true},
		{"1.2.3.4/33", "", false},
		{"bogus", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := Normalize(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFilterValidPublic(t *testing.T) {
	valid, rejected := FilterValidPublic([]string{
		"8.8.8.8",
		"10.0.0.5",
		"not-an-ip",
		"203.0.113.9",
		"256.1.1.1",
		"0.0.0.0",
	})

	wantValid := []string{"8.8.8.8", "203.0.113.9"}
	wantRejected := []string{"10.0.0.5", "not-an-ip", "256.1.1.1", "0.0.0.0"}

	if !reflect.DeepEqual(valid, wantValid) {
		t.Errorf("valid = %v, want %v", valid, wantValid)
	}
	if !reflect.DeepEqual(rejected, wantRejected) {
		t.Errorf("rejected = %v, want %v", rejected, wantRejected)
	}
}

func TestFilterValidPublicEmpty(t *testing.T) {
	valid, rejected := FilterValidPublic(nil)
	if len(valid) != 0 || len(rejected) != 0 {
		t.Errorf("expected empty partitions, got valid=%v rejected=%v", valid, rejected)
	}
}

func TestSplitTokens(t *testing.T) {
	got := SplitTokens("1.2.3.4, 5.6.7.8\t9.9.9.9")
	want := []string{"1.2.3.4", "5.6.7.8", "9.9.9.9"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitTokens = %v, want %v", got, want)
	}
}
