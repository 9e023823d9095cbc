package acl

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// ErrInvalidSubnet 地址或前缀长度不合法
var ErrInvalidSubnet = errors.New("无效的子网")

// Subnet CIDR 形式的网段（地址 + 前缀长度），创建后不可变。
// 地址按原样保存，不清零主机位。
type Subnet struct {
	addr netip.Addr
	bits uint8
}

// ParseSubnet 解析 "address" 或 "address/prefix"，单地址视为全长前缀
func ParseSubnet(s string) (Subnet, error) {
	host, prefix, hasPrefix := strings.Cut(s, "/")
	addr, err := netip.ParseAddr(host)
	if err != nil || addr.Zone() != "" {
		return Subnet{}, fmt.Errorf("%w: %q", ErrInvalidSubnet, s)
	}
	if !hasPrefix {
		return Subnet{addr: addr, bits: uint8(addr.BitLen())}, nil
	}
	bits, err := strconv.ParseUint(prefix, 10, 8)
	if err != nil || int(bits) > addr.BitLen() {
		return Subnet{}, fmt.Errorf("%w: 前缀长度越界 %q", ErrInvalidSubnet, s)
	}
	return Subnet{addr: addr, bits: uint8(bits)}, nil
}

// MustParseSubnet 解析失败时 panic，仅用于常量初始化和测试
func MustParseSubnet(s string) Subnet {
	subnet, err := ParseSubnet(s)
	if err != nil {
		panic(err)
	}
	return subnet
}

func (s Subnet) Addr() netip.Addr { return s.addr }

func (s Subnet) Bits() int { return int(s.bits) }

func (s Subnet) IsValid() bool { return s.addr.IsValid() }

// Prefix 返回清零主机位后的网段
func (s Subnet) Prefix() netip.Prefix {
	return netip.PrefixFrom(s.addr, int(s.bits)).Masked()
}

// String 单主机时省略前缀
func (s Subnet) String() string {
	if !s.addr.IsValid() {
		return ""
	}
	if int(s.bits) == s.addr.BitLen() {
		return s.addr.String()
	}
	return s.addr.String() + "/" + strconv.Itoa(int(s.bits))
}

// Compare 依次比较地址族（IPv4 在前）、地址、前缀长度
func (s Subnet) Compare(other Subnet) int {
	if s.addr.BitLen() != other.addr.BitLen() {
		if s.addr.BitLen() < other.addr.BitLen() {
			return -1
		}
		return 1
	}
	if c := s.addr.Compare(other.addr); c != 0 {
		return c
	}
	switch {
	case s.bits < other.bits:
		return -1
	case s.bits > other.bits:
		return 1
	}
	return 0
}

func (s Subnet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Subnet) UnmarshalText(text []byte) error {
	subnet, err := ParseSubnet(string(text))
	if err != nil {
		return err
	}
	*s = subnet
	return nil
}
