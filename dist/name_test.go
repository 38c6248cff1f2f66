package dist

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "mypackage", want: "mypackage"},
		{name: "hyphen", in: "my-package", want: "my_package"},
		{name: "dots and case", in: "My.Cool-Package", want: "my_cool_package"},
		{name: "separator runs", in: "a--b__c..d", want: "a_b_c_d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPackageName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "my-package", want: "my_package"},
		{in: "My-Package", want: "My_Package"},
		{in: "my.pkg", want: "my_pkg"},
	}
	for _, tt := range tests {
		if got := PackageName(tt.in); got != tt.want {
			t.Errorf("PackageName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
