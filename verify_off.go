//go:build !rxverify

package reactive

func verifyPropertyName(*Object, string) {}
