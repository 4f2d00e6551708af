package domain

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// IsVersionGreater 判断 newV 是否大于 oldV。
// oldV 为空表示尚未安装；任一方不是合法语义化版本时退化为字符串比较。
func IsVersionGreater(newV, oldV string) bool {
	if oldV == "" {
		return true
	}
	nv, err1 := semver.NewVersion(newV)
	ov, err2 := semver.NewVersion(oldV)
	if err1 != nil || err2 != nil {
		return newV > oldV
	}
	return nv.GreaterThan(ov)
}

// CheckUpgrade 校验同一个包的新版本能否覆盖已安装版本。
func CheckUpgrade(newV, oldV string) error {
	if oldV == "" {
		return nil
	}
	if sameVersion(newV, oldV) {
		return fmt.Errorf("%w: new version %s equals installed version %s, bump the version or uninstall first",
			ErrVersionUnchanged, newV, oldV)
	}
	if !IsVersionGreater(newV, oldV) {
		return fmt.Errorf("%w: new version %s must be greater than installed version %s",
			ErrVersionNotGreater, newV, oldV)
	}
	return nil
}

// sameVersion 在两边都是合法语义化版本时按语义比较（1.0 与 1.0.0 相等），否则比较原文。
func sameVersion(a, b string) bool {
	av, err1 := semver.NewVersion(a)
	bv, err2 := semver.NewVersion(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return av.Equal(bv)
}
