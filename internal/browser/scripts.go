package browser

// uiTreeScript walks the visible DOM and returns interactive elements as
// JSON. Each interactive element is tagged with a data-agent-id attribute so
// later actions can resolve it without re-walking the tree.
const uiTreeScript = `function() {
	const MAX_ITEMS = 400;
	document.querySelectorAll('[data-agent-id]').forEach(el => el.removeAttribute('data-agent-id'));

	const items = [];
	let idCounter = 1;

	function isVisible(el) {
		const rect = el.getBoundingClientRect();
		if (rect.width < 1 || rect.height < 1) return false;
		const style = window.getComputedStyle(el);
		return style.visibility !== 'hidden' && style.display !== 'none' && style.opacity !== '0';
	}

	function isInteractive(el, style) {
		const tag = el.tagName.toLowerCase();
		if (['a', 'button', 'input', 'select', 'textarea'].includes(tag)) return true;
		const role = el.getAttribute('role');
		if (['button', 'link', 'textbox', 'checkbox', 'menuitem', 'tab'].includes(role)) return true;
		if (el.isContentEditable) return true;
		return style.cursor === 'pointer' && el.onclick != null;
	}

	for (const el of document.body.querySelectorAll('*')) {
		if (items.length >= MAX_ITEMS) break;
		if (!isVisible(el)) continue;
		const style = window.getComputedStyle(el);
		const interactive = isInteractive(el, style);
		const text = (el.innerText || el.value || el.getAttribute('aria-label') || el.getAttribute('placeholder') || '').trim().slice(0, 80);
		if (!interactive && !text) continue;
		if (!interactive && el.children.length > 0) continue;
		let id = 0;
		if (interactive) {
			id = idCounter++;
			el.setAttribute('data-agent-id', String(id));
		}
		items.push({
			id: id,
			tag: el.tagName.toLowerCase(),
			role: el.getAttribute('role') || '',
			text: text,
			interactive: interactive,
		});
	}
	return JSON.stringify(items);
}`

// focusedScript reports the focused element in accessibility terms.
const focusedScript = `function() {
	const el = document.activeElement;
	if (!el || el === document.body) return JSON.stringify(null);
	const value = el.value !== undefined ? String(el.value) : (el.isContentEditable ? el.innerText : '');
	let selected = 0;
	for (const child of el.children) {
		if (child.getAttribute && (child.getAttribute('aria-selected') === 'true' || child.classList.contains('selected'))) selected++;
	}
	return JSON.stringify({
		role: el.getAttribute('role') || el.tagName.toLowerCase(),
		value: value,
		label: el.getAttribute('aria-label') || el.getAttribute('placeholder') || el.name || '',
		secure: el.type === 'password',
		selectedChildren: selected,
	});
}`

// clickByTextScript finds a clickable element whose visible text matches.
const clickByTextScript = `function(needle) {
	needle = needle.trim().toLowerCase();
	const candidates = document.querySelectorAll('a, button, input[type=submit], input[type=button], [role=button], [role=link], [onclick]');
	for (const el of candidates) {
		const text = (el.innerText || el.value || el.getAttribute('aria-label') || '').trim().toLowerCase();
		if (text === needle || (needle.length > 2 && text.includes(needle))) {
			el.setAttribute('data-agent-target', '1');
			return true;
		}
	}
	return false;
}`
