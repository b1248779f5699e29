package rate

func loginUserKey(email string) string {
	return "al:" + email
}

func loginIPKey(ip string) string {
	return "ali:" + ip
}

func resetRequestKey(email string) string {
	return "arr:" + email
}
